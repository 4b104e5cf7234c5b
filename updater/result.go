package updater

import (
	"fmt"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/warden/pipeline"
)

// Outcome says what a check concluded, without forcing callers to
// decode it from (error, bool) pairs.
type Outcome string

const (
	// a guard condition matched, nothing was looked up
	OutcomeSkipped Outcome = "skipped"
	// the cave was inspected and is already current
	OutcomeNoUpgrade Outcome = "no-upgrade"
	// an upgrade exists: either a request was queued or the user
	// was prompted to pick one
	OutcomeUpgraded Outcome = "upgraded"
	// the check itself failed
	OutcomeFailed Outcome = "failed"
)

type SkipReason string

const (
	SkipReasonWrongUser        SkipReason = "installed by another user"
	SkipReasonNotLaunchable    SkipReason = "not launchable"
	SkipReasonNoGame           SkipReason = "no game recorded"
	SkipReasonGameRunning      SkipReason = "game is running"
	SkipReasonKeyOwnerMismatch SkipReason = "download key belongs to another user"
)

type ErrorKind string

const (
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindNoUploads ErrorKind = "no-uploads"
	ErrorKindResolver  ErrorKind = "resolver"
	ErrorKindGeneric   ErrorKind = "generic"
)

// A CheckResult is the outcome of one update check for one cave.
// It is never persisted.
type CheckResult struct {
	Outcome Outcome

	// set when Outcome is OutcomeSkipped
	SkipReason SkipReason

	// set when Outcome is OutcomeFailed
	Err       error
	ErrorKind ErrorKind

	// the fresh game record, when the check got far enough to fetch it
	Game *itchio.Game

	// the queued request, when one was queued automatically
	Request *pipeline.InstallRequest

	// true when an upload prompt was emitted instead of auto-queuing
	Prompted bool
}

// HasUpgrade reports whether an applicable upgrade exists for the
// cave, whether or not one was queued automatically.
func (cr *CheckResult) HasUpgrade() bool {
	return cr.Outcome == OutcomeUpgraded
}

func (cr *CheckResult) String() string {
	switch cr.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("skipped (%s)", cr.SkipReason)
	case OutcomeFailed:
		return fmt.Sprintf("failed (%s): %v", cr.ErrorKind, cr.Err)
	case OutcomeUpgraded:
		if cr.Prompted {
			return "upgraded (user prompted)"
		}
		return "upgraded (request queued)"
	default:
		return string(cr.Outcome)
	}
}

func skipped(reason SkipReason) *CheckResult {
	return &CheckResult{
		Outcome:    OutcomeSkipped,
		SkipReason: reason,
	}
}

func failed(kind ErrorKind, err error) *CheckResult {
	return &CheckResult{
		Outcome:   OutcomeFailed,
		ErrorKind: kind,
		Err:       err,
	}
}
