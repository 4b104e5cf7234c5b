package manager

import (
	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/ox"
)

// Platforms is the explicit set of capability flags an upload or a
// game carries, one per supported platform family. The API reports
// architectures per platform; an empty value means "not available
// there".
type Platforms struct {
	Linux   bool
	Windows bool
	OSX     bool
}

func PlatformsForGame(game *itchio.Game) *Platforms {
	return platformsFor(game.Platforms)
}

func PlatformsForUpload(upload *itchio.Upload) *Platforms {
	return platformsFor(upload.Platforms)
}

func platformsFor(p itchio.Platforms) *Platforms {
	return &Platforms{
		Linux:   p.Linux != "",
		Windows: p.Windows != "",
		OSX:     p.OSX != "",
	}
}

func (p *Platforms) IsCompatible(rt *ox.Runtime) bool {
	switch rt.Platform {
	case ox.PlatformLinux:
		return p.Linux
	case ox.PlatformOSX:
		return p.OSX
	case ox.PlatformWindows:
		return p.Windows
	}

	return false
}

// ExclusivityScore returns a higher value the closest an
// upload is to being *only for this platform*
func (p *Platforms) ExclusivityScore(rt *ox.Runtime) int64 {
	var score int64 = 400

	switch rt.Platform {
	case ox.PlatformLinux:
		if p.OSX {
			score -= 100
		}
		if p.Windows {
			score -= 100
		}
	case ox.PlatformOSX:
		if p.Linux {
			score -= 100
		}
		if p.Windows {
			score -= 100
		}
	case ox.PlatformWindows:
		if p.Linux {
			score -= 100
		}
		if p.OSX {
			score -= 100
		}
	default:
		score = 0
	}

	return score
}
