package installer

import (
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/archiver"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

type archiveExtractor struct{}

var _ pipeline.Extractor = (*archiveExtractor)(nil)

func NewExtractor() pipeline.Extractor {
	return &archiveExtractor{}
}

func (ae *archiveExtractor) Extract(consumer *state.Consumer, archivePath string, destFolder string) error {
	res, err := archiver.ExtractPath(archivePath, destFolder, archiver.ExtractSettings{
		Consumer: consumer,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	consumer.Infof("extracted %d dirs, %d files, %d symlinks", res.Dirs, res.Files, res.Symlinks)
	return nil
}
