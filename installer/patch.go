package installer

import (
	"os"

	"github.com/itchio/savior/seeksource"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/pwr"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

type wharfPatcher struct{}

var _ pipeline.Patcher = (*wharfPatcher)(nil)

func NewPatcher() pipeline.Patcher {
	return &wharfPatcher{}
}

// Apply rebuilds the install folder in place, one patch at a time.
func (wp *wharfPatcher) Apply(consumer *state.Consumer, patchPath string, installFolder string) error {
	patchReader, err := os.Open(patchPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer patchReader.Close()

	source := seeksource.FromFile(patchReader)
	_, err = source.Resume(nil)
	if err != nil {
		return errors.WithStack(err)
	}

	actx := &pwr.ApplyContext{
		TargetPath: installFolder,
		OutputPath: installFolder,
		InPlace:    true,
		Consumer:   consumer,
	}

	err = actx.ApplyPatch(source)
	if err != nil {
		return errors.WithStack(err)
	}

	consumer.Debugf("patch touched %d files, deleted %d, left %d alone",
		actx.Stats.TouchedFiles, actx.Stats.DeletedFiles, actx.Stats.NoopFiles)
	return nil
}
