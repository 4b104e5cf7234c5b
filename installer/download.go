// Package installer carries the production collaborators the install
// pipeline drives: transfer, extraction, patching, executable
// discovery, launching, and user-facing notification.
package installer

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/itchio/httpkit/timeout"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/counter"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

type httpDownloader struct {
	client *http.Client
}

var _ pipeline.Downloader = (*httpDownloader)(nil)

func NewDownloader() pipeline.Downloader {
	return &httpDownloader{
		client: timeout.NewDefaultClient(),
	}
}

// Download transfers url to destPath, resuming from whatever bytes a
// previous attempt left behind.
func (hd *httpDownloader) Download(consumer *state.Consumer, url string, destPath string, onProgress func(progress float64)) error {
	existingBytes := int64(0)
	if stats, err := os.Lstat(destPath); err == nil {
		existingBytes = stats.Size()
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if existingBytes > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existingBytes))
	}

	res, err := hd.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		// the server ignored our range, start over
		existingBytes = 0
	case http.StatusPartialContent:
		consumer.Debugf("resuming at byte %d", existingBytes)
	case http.StatusRequestedRangeNotSatisfiable:
		consumer.Debugf("nothing left to transfer")
		return nil
	default:
		return errors.Errorf("server returned HTTP %s for %s", res.Status, url)
	}

	flag := os.O_CREATE | os.O_WRONLY
	if existingBytes > 0 {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	out, err := os.OpenFile(destPath, flag, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer out.Close()

	totalBytes := existingBytes + res.ContentLength
	onWrite := func(count int64) {
		if totalBytes > 0 && onProgress != nil {
			onProgress(float64(existingBytes+count) / float64(totalBytes))
		}
	}

	cw := counter.NewWriterCallback(onWrite, out)
	_, err = io.Copy(cw, res.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
