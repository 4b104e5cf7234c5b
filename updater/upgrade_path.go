package updater

import (
	itchio "github.com/itchio/go-itchio"
	"github.com/pkg/errors"
)

// An UpgradePlan is an ordered chain of builds to patch through,
// oldest first, together with the total download size of the chain.
// Applying a prefix of the chain leaves the install at a valid
// intermediate build.
type UpgradePlan struct {
	Builds    []*itchio.Build
	TotalSize int64
}

// A Resolver turns (current build, target upload) into an upgrade
// plan. It fails when no path exists, never by returning an empty
// plan: "already up to date" is detected before the resolver is
// called.
type Resolver interface {
	Resolve(currentBuildID int64, upload *itchio.Upload) (*UpgradePlan, error)
}

type apiResolver struct {
	client      *itchio.Client
	credentials itchio.GameCredentials
}

var _ Resolver = (*apiResolver)(nil)

func NewResolver(client *itchio.Client, credentials itchio.GameCredentials) Resolver {
	return &apiResolver{
		client:      client,
		credentials: credentials,
	}
}

func (ar *apiResolver) Resolve(currentBuildID int64, upload *itchio.Upload) (*UpgradePlan, error) {
	if upload.Build == nil {
		return nil, errors.Errorf("upload %d has no build, cannot resolve upgrade path", upload.ID)
	}

	pathRes, err := ar.client.GetBuildUpgradePath(itchio.GetBuildUpgradePathParams{
		CurrentBuildID: currentBuildID,
		TargetBuildID:  upload.Build.ID,
		Credentials:    ar.credentials,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "while looking up upgrade path")
	}

	builds := pathRes.UpgradePath.Builds
	if len(builds) == 0 {
		return nil, errors.Errorf("empty upgrade path from build %d to build %d", currentBuildID, upload.Build.ID)
	}

	// the first entry is the build we already have
	builds = builds[1:]
	if len(builds) == 0 {
		return nil, errors.Errorf("upgrade path from build %d to build %d has no steps", currentBuildID, upload.Build.ID)
	}

	var totalSize int64
	for _, b := range builds {
		patchFile := findPatchFile(b)
		if patchFile == nil {
			return nil, errors.Errorf("build %d has no uploaded patch, cannot upgrade incrementally", b.ID)
		}
		totalSize += patchFile.Size
	}

	return &UpgradePlan{
		Builds:    builds,
		TotalSize: totalSize,
	}, nil
}

// findPatchFile prefers optimized (rediff'd) patches when present.
func findPatchFile(build *itchio.Build) *itchio.BuildFile {
	f := itchio.FindBuildFileEx(itchio.BuildFileTypePatch, itchio.BuildFileSubTypeOptimized, build.Files)
	if f != nil {
		return f
	}
	return itchio.FindBuildFile(itchio.BuildFileTypePatch, build.Files)
}
