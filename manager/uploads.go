package manager

import (
	"regexp"
	"sort"
	"strings"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/ox"
	"github.com/itchio/wharf/state"
)

type NarrowDownUploadsResult struct {
	InitialUploads []*itchio.Upload
	Uploads        []*itchio.Upload
	HadWrongFormat bool
	HadWrongArch   bool
}

// NarrowDownUploads filters out uploads that cannot be installed on
// the given runtime, then sorts the survivors from most to least
// likely to be the one the user wants.
func NarrowDownUploads(consumer *state.Consumer, game *itchio.Game, uploads []*itchio.Upload, runtime *ox.Runtime) *NarrowDownUploadsResult {
	if actionForGame(game) == ClassificationActionOpen {
		// if all we ever do is reveal it, any upload will do
		return &NarrowDownUploadsResult{
			InitialUploads: uploads,
			Uploads:        uploads,
		}
	}

	platformUploads := excludeWrongPlatform(uploads, runtime)
	formatUploads := excludeWrongFormat(platformUploads)
	archUploads := excludeWrongArch(consumer, formatUploads, runtime)

	return &NarrowDownUploadsResult{
		InitialUploads: uploads,
		Uploads:        sortUploads(archUploads, runtime),
		HadWrongFormat: len(formatUploads) < len(platformUploads),
		HadWrongArch:   len(archUploads) < len(formatUploads),
	}
}

func excludeWrongPlatform(uploads []*itchio.Upload, runtime *ox.Runtime) []*itchio.Upload {
	var res []*itchio.Upload

	for _, u := range uploads {
		// soundtracks, books etc. run anywhere, only executables
		// need to match the platform
		if u.Type == "default" && !PlatformsForUpload(u).IsCompatible(runtime) {
			continue
		}
		res = append(res, u)
	}

	return res
}

// distribution packages we have no silent install story for
var knownBadFormatRegexp = regexp.MustCompile(`(?i)\.(rpm|deb|pkg)$`)

func excludeWrongFormat(uploads []*itchio.Upload) []*itchio.Upload {
	var res []*itchio.Upload

	for _, u := range uploads {
		if knownBadFormatRegexp.MatchString(u.Filename) {
			continue
		}
		res = append(res, u)
	}

	return res
}

var (
	preferredFormatRegexp     = regexp.MustCompile(`\.(zip|7z)$`)
	usuallySourceFormatRegexp = regexp.MustCompile(`\.tar\.(gz|bz2|xz)$`)
	soundtrackFormatRegexp    = regexp.MustCompile(`soundtrack`)
)

func scoreUpload(upload *itchio.Upload, runtime *ox.Runtime) int64 {
	filename := strings.ToLower(upload.Filename)
	var score int64 = 500

	switch {
	case preferredFormatRegexp.MatchString(filename):
		score += 100
	case usuallySourceFormatRegexp.MatchString(filename):
		// tarballs tend to be source archives, not builds
		score -= 100
	}

	if soundtrackFormatRegexp.MatchString(filename) {
		// definitely not something we can launch
		score -= 1000
	}

	if upload.Type == "default" {
		score += 400
	}

	if upload.Demo {
		// only wanted when nothing full is accessible
		score -= 500
	}

	score += PlatformsForUpload(upload).ExclusivityScore(runtime)

	return score
}

func sortUploads(uploads []*itchio.Upload, runtime *ox.Runtime) []*itchio.Upload {
	type scored struct {
		upload *itchio.Upload
		score  int64
	}

	els := make([]scored, len(uploads))
	for i, u := range uploads {
		els[i] = scored{upload: u, score: scoreUpload(u, runtime)}
	}

	sort.SliceStable(els, func(i, j int) bool {
		return els[i].score > els[j].score
	})

	res := make([]*itchio.Upload, len(els))
	for i, el := range els {
		res[i] = el.upload
	}

	return res
}

// On windows and linux, a 64-bit machine wants the 64-bit build when
// there is one, and a 32-bit machine can never take a 64-bit build.
// Bitness is sniffed from the file names, the API doesn't carry it.
func excludeWrongArch(consumer *state.Consumer, uploads []*itchio.Upload, runtime *ox.Runtime) []*itchio.Upload {
	if runtime.Platform != ox.PlatformWindows && runtime.Platform != ox.PlatformLinux {
		return uploads
	}

	consumer.Debugf("Got %d uploads, we're on %s, let's sniff architectures", len(uploads), runtime)

	wanted, unwanted := "64", "32"
	if !runtime.Is64 {
		wanted, unwanted = "32", "64"
	}

	if !anyUploadContainsString(uploads, wanted) {
		// no upload targets our bitness, keep everything and hope
		return uploads
	}

	var res []*itchio.Upload
	for _, u := range uploads {
		if uploadContainsString(u, unwanted) {
			continue
		}
		res = append(res, u)
	}

	return res
}

func uploadContainsString(upload *itchio.Upload, s string) bool {
	return strings.Contains(strings.ToLower(upload.Filename), s) ||
		strings.Contains(strings.ToLower(upload.DisplayName), s)
}

func anyUploadContainsString(uploads []*itchio.Upload, s string) bool {
	for _, u := range uploads {
		if uploadContainsString(u, s) {
			return true
		}
	}
	return false
}
