package pipeline

import (
	"github.com/itchio/wharf/state"
)

// The collaborators below are the outer edge of the pipeline: transfer,
// extraction, executable discovery, launching, and talking to the user.
// The pipeline only ever drives them through these contracts.

// A Downloader transfers a URL to a local file, reporting progress
// in [0,1] as it goes.
type Downloader interface {
	Download(consumer *state.Consumer, url string, destPath string, onProgress func(progress float64)) error
}

// An Extractor unpacks a downloaded archive into a folder.
type Extractor interface {
	Extract(consumer *state.Consumer, archivePath string, destFolder string) error
}

// A Configurator walks an install folder and returns candidate
// executables, best first.
type Configurator interface {
	Configure(consumer *state.Consumer, installFolder string) ([]string, error)
}

// A Launcher starts an executable. The pipeline does not wait for
// the process to exit; onExit fires (from another goroutine) once
// the process is gone, so the caller can release its running task.
type Launcher interface {
	Launch(consumer *state.Consumer, executablePath string, onExit func()) error
}

// A Patcher applies one wharf patch to an install folder, leaving it
// at the next build of the chain.
type Patcher interface {
	Apply(consumer *state.Consumer, patchPath string, installFolder string) error
}

// A ChoiceOption is one entry of an upload prompt. Picking it queues
// the corresponding install request.
type ChoiceOption struct {
	Label string
	Pick  func() error
}

// A Notifier surfaces messages and choices to the user. PromptChoice
// is asynchronous: the user may pick an option much later, or never.
type Notifier interface {
	Notify(message string)
	PromptChoice(title string, message string, options []*ChoiceOption)
}

// A Queue accepts install requests. Queuing a request for a cave that
// already has a pending request replaces the pending one.
type Queue interface {
	Queue(req *InstallRequest) error
}
