package updater

import (
	"github.com/itchio/wharf/state"
)

type memoryLogItem struct {
	level   string
	message string
}

// memoryLogger buffers consumer messages so they can be replayed
// later. The scheduler uses it to keep per-cave checks quiet unless
// they fail, in which case the whole buffer is dumped at once.
type memoryLogger struct {
	items []memoryLogItem
}

func newMemoryLogger() *memoryLogger {
	return &memoryLogger{}
}

func (ml *memoryLogger) Consumer() *state.Consumer {
	return &state.Consumer{
		OnMessage: func(level string, message string) {
			ml.items = append(ml.items, memoryLogItem{level, message})
		},
	}
}

// Copy replays all buffered messages into another consumer.
func (ml *memoryLogger) Copy(dst *state.Consumer) {
	for _, item := range ml.items {
		dst.OnMessage(item.level, item.message)
	}
}
