package manager_test

import (
	"testing"

	"github.com/itchio/ox"
	"github.com/itchio/wharf/state"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/warden/manager"
	"github.com/stretchr/testify/assert"
)

func makeTestConsumer(t *testing.T) *state.Consumer {
	return &state.Consumer{
		OnMessage: func(lvl string, msg string) {
			t.Logf("[%s] %s", lvl, msg)
		},
	}
}

func Test_NarrowDownUploads_FormatBlacklist(t *testing.T) {
	consumer := makeTestConsumer(t)

	game := &itchio.Game{
		Classification: "game",
	}

	ndu := func(uploads []*itchio.Upload, runtime *ox.Runtime) *manager.NarrowDownUploadsResult {
		return manager.NarrowDownUploads(consumer, game, uploads, runtime)
	}

	debrpm := []*itchio.Upload{
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "wrong.deb",
			Type:     "default",
		},
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "nope.rpm",
			Type:     "default",
		},
	}

	linux64 := &ox.Runtime{
		Platform: ox.PlatformLinux,
		Is64:     true,
	}

	assert.EqualValues(t, &manager.NarrowDownUploadsResult{
		HadWrongFormat: true,
		HadWrongArch:   false,
		Uploads:        nil,
		InitialUploads: debrpm,
	}, ndu(debrpm, linux64), "blacklist .deb and .rpm files")
}

func Test_NarrowDownUploads(t *testing.T) {
	consumer := makeTestConsumer(t)

	game := &itchio.Game{
		Classification: "game",
	}

	ndu := func(uploads []*itchio.Upload, runtime *ox.Runtime) *manager.NarrowDownUploadsResult {
		return manager.NarrowDownUploads(consumer, game, uploads, runtime)
	}

	linux64 := &ox.Runtime{
		Platform: ox.PlatformLinux,
		Is64:     true,
	}

	assert.EqualValues(t, &manager.NarrowDownUploadsResult{
		HadWrongFormat: false,
		HadWrongArch:   false,
		Uploads:        nil,
		InitialUploads: nil,
	}, ndu(nil, linux64), "empty is empty")

	wrongPlatform := []*itchio.Upload{
		{
			Platforms: itchio.Platforms{Windows: itchio.ArchitecturesAll},
			Filename: "super-game.zip",
			Type:     "default",
		},
	}
	assert.EqualValues(t, &manager.NarrowDownUploadsResult{
		HadWrongFormat: false,
		HadWrongArch:   false,
		Uploads:        nil,
		InitialUploads: wrongPlatform,
	}, ndu(wrongPlatform, linux64), "exclude wrong platform")

	wrongArch := []*itchio.Upload{
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "super-game-win32.zip",
			Type:     "default",
		},
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "super-game-win64.zip",
			Type:     "default",
		},
	}
	narrowed := ndu(wrongArch, linux64)
	assert.True(t, narrowed.HadWrongArch, "sniffed arch on linux")
	assert.EqualValues(t, 1, len(narrowed.Uploads), "one upload left after arch filter")
	assert.EqualValues(t, "super-game-win64.zip", narrowed.Uploads[0].Filename)

	books := []*itchio.Upload{
		{
			Filename: "book.pdf",
			Type:     "book",
		},
	}
	assert.EqualValues(t, &manager.NarrowDownUploadsResult{
		HadWrongFormat: false,
		HadWrongArch:   false,
		Uploads:        books,
		InitialUploads: books,
	}, ndu(books, linux64), "books survive platform filtering")

	sorted := []*itchio.Upload{
		{
			Platforms: itchio.Platforms{
				Linux:   itchio.ArchitecturesAll,
				Windows: itchio.ArchitecturesAll,
				OSX:     itchio.ArchitecturesAll,
			},
			Filename: "all-platforms.zip",
			Type:     "default",
		},
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "linux-only.zip",
			Type:     "default",
		},
	}
	narrowed = ndu(sorted, linux64)
	assert.EqualValues(t, 2, len(narrowed.Uploads))
	assert.EqualValues(t, "linux-only.zip", narrowed.Uploads[0].Filename,
		"most exclusive upload sorts first")

	demoted := []*itchio.Upload{
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "game-demo.zip",
			Demo:     true,
			Type:     "default",
		},
		{
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
			Filename: "game-full.zip",
			Type:     "default",
		},
	}
	narrowed = ndu(demoted, linux64)
	assert.EqualValues(t, "game-full.zip", narrowed.Uploads[0].Filename,
		"demos sort after full versions")
}

func Test_NarrowDownUploads_OpenAction(t *testing.T) {
	consumer := makeTestConsumer(t)

	game := &itchio.Game{
		Classification: "soundtrack",
	}

	uploads := []*itchio.Upload{
		{
			Filename: "ost.mp3.zip",
		},
	}

	linux64 := &ox.Runtime{
		Platform: ox.PlatformLinux,
		Is64:     true,
	}

	res := manager.NarrowDownUploads(consumer, game, uploads, linux64)
	assert.EqualValues(t, uploads, res.Uploads, "no filtering for open action")
}
