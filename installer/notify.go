package installer

import (
	"github.com/itchio/warden/comm"
	"github.com/itchio/warden/pipeline"
)

type commNotifier struct{}

var _ pipeline.Notifier = (*commNotifier)(nil)

// NewNotifier returns the CLI notifier: messages go through comm, and
// choice prompts are printed rather than shown as a modal. The
// desktop shell is expected to bring its own Notifier.
func NewNotifier() pipeline.Notifier {
	return &commNotifier{}
}

func (cn *commNotifier) Notify(message string) {
	comm.Statf("%s", message)
}

func (cn *commNotifier) PromptChoice(title string, message string, options []*pipeline.ChoiceOption) {
	comm.Opf("%s", title)
	comm.Logf("%s", message)
	for n, option := range options {
		comm.Logf("  %d) %s", n+1, option.Label)
	}
	comm.Logf("  0) keep the current version")
	comm.Result(map[string]interface{}{
		"type":    "choice",
		"title":   title,
		"message": message,
		"options": choiceLabels(options),
	})
}

func choiceLabels(options []*pipeline.ChoiceOption) []string {
	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Label)
	}
	return labels
}
