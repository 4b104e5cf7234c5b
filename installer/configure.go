package installer

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/itchio/ox"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

type execFlavor string

const (
	execElf     execFlavor = "elf"
	execMachO   execFlavor = "mach-o"
	execPe      execFlavor = "pe"
	execShebang execFlavor = "shebang"
)

type candidate struct {
	path   string
	flavor execFlavor
	depth  int
}

type sniffConfigurator struct {
	runtime *ox.Runtime
}

var _ pipeline.Configurator = (*sniffConfigurator)(nil)

func NewConfigurator(runtime *ox.Runtime) pipeline.Configurator {
	if runtime == nil {
		runtime = ox.CurrentRuntime()
	}
	return &sniffConfigurator{runtime: runtime}
}

// Configure walks the install folder looking for things we could
// run, and returns them most-likely first: native executables for
// this platform, shallow paths before deep ones.
func (sc *sniffConfigurator) Configure(consumer *state.Consumer, installFolder string) ([]string, error) {
	var candidates []candidate

	walker := func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if f.IsDir() {
			return nil
		}

		flavor, sniffErr := sniffExec(path, f)
		if sniffErr != nil {
			consumer.Debugf("could not sniff %s: %v", path, sniffErr)
			return nil
		}
		if flavor == "" {
			return nil
		}

		rel, relErr := filepath.Rel(installFolder, path)
		if relErr != nil {
			rel = path
		}
		candidates = append(candidates, candidate{
			path:   path,
			flavor: flavor,
			depth:  len(strings.Split(rel, string(filepath.Separator))),
		})
		return nil
	}
	if err := filepath.Walk(installFolder, walker); err != nil {
		return nil, errors.WithStack(err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		ni, nj := sc.isNative(ci.flavor), sc.isNative(cj.flavor)
		if ni != nj {
			return ni
		}
		return ci.depth < cj.depth
	})

	executables := make([]string, 0, len(candidates))
	for _, c := range candidates {
		consumer.Debugf("found %s executable: %s", c.flavor, c.path)
		executables = append(executables, c.path)
	}
	return executables, nil
}

func (sc *sniffConfigurator) isNative(flavor execFlavor) bool {
	switch sc.runtime.Platform {
	case ox.PlatformLinux:
		return flavor == execElf
	case ox.PlatformOSX:
		return flavor == execMachO
	case ox.PlatformWindows:
		return flavor == execPe
	}
	return false
}

// sniffExec looks at magic numbers, not file extensions, except for
// the windows cases where the extension is all there is.
func sniffExec(path string, f os.FileInfo) (execFlavor, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".bat") {
		return execPe, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer file.Close()

	buf := make([]byte, 8)
	if _, err := io.ReadFull(file, buf); err != nil {
		// too short to be anything runnable
		return "", nil
	}

	switch {
	// ELF: 0x7F 'E' 'L' 'F'
	case buf[0] == 0x7F && buf[1] == 0x45 && buf[2] == 0x4C && buf[3] == 0x46:
		if strings.HasSuffix(lower, ".so") || strings.Contains(lower, ".so.") {
			// shared library, not an executable
			return "", nil
		}
		return execElf, nil

	// intel Mach-O starts with 0xCEFAEDFE or 0xCFFAEDFE
	case (buf[0] == 0xCE || buf[0] == 0xCF) && buf[1] == 0xFA && buf[2] == 0xED && buf[3] == 0xFE:
		return execMachO, nil

	// Mach-O universal ('fat') binaries start with 0xCAFEBABE
	case buf[0] == 0xCA && buf[1] == 0xFE && buf[2] == 0xBA && buf[3] == 0xBE:
		return execMachO, nil

	// shebang scripts
	case buf[0] == '#' && buf[1] == '!':
		if f.Mode()&0111 == 0 {
			return "", nil
		}
		return execShebang, nil
	}

	return "", nil
}
