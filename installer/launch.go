package installer

import (
	"os/exec"
	"path/filepath"

	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

type processLauncher struct{}

var _ pipeline.Launcher = (*processLauncher)(nil)

func NewLauncher() pipeline.Launcher {
	return &processLauncher{}
}

// Launch starts the executable and walks away. The game's exit code
// is not our problem, but onExit still fires once it's gone.
func (pl *processLauncher) Launch(consumer *state.Consumer, executablePath string, onExit func()) error {
	cmd := exec.Command(executablePath)
	cmd.Dir = filepath.Dir(executablePath)

	err := cmd.Start()
	if err != nil {
		return errors.WithStack(err)
	}

	consumer.Infof("launched %s (pid %d)", executablePath, cmd.Process.Pid)

	go func() {
		// reap the child so it doesn't stick around as a zombie
		_ = cmd.Wait()
		if onExit != nil {
			onExit()
		}
	}()

	return nil
}
