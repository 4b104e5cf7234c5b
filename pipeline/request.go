package pipeline

import (
	itchio "github.com/itchio/go-itchio"
)

// DownloadReason tags why an install request was queued.
type DownloadReason string

const (
	DownloadReasonInstall DownloadReason = "install"
	DownloadReasonUpdate  DownloadReason = "update"
)

// An InstallRequest describes one acquisition to perform: which
// upload to fetch for which cave, and how (full archive or an
// ordered chain of patches).
type InstallRequest struct {
	// ID of the cave this request belongs to
	CaveID string

	Game   *itchio.Game
	Upload *itchio.Upload
	Build  *itchio.Build

	Reason DownloadReason

	// true if the user picked this upload from a prompt
	HandPicked bool

	// true if this request applies a patch chain instead of
	// downloading the full archive
	Incremental bool

	// ordered list of builds to patch through, oldest first.
	// Only set when Incremental is true.
	UpgradePath []*itchio.Build

	// sum of the patch sizes (incremental) or the upload size (full)
	TotalSize int64

	DownloadKeyID int64

	InstallFolder string
	StagingFolder string
}
