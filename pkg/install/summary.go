package install

import (
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Summary renders the human-readable outcome of an install: keg location,
// size, file count, and build time when built from source.
func Summary(fs types.FS, result *Result) string {
	if result.KegPath == "" {
		return fmt.Sprintf("%s: %s", result.Name, result.State)
	}

	files, size := kegStats(fs, result.KegPath)
	line := fmt.Sprintf("%s: %d files, %s", result.KegPath, files, humanSize(size))
	if result.PouredFromBottle {
		line += ", poured from bottle"
	} else if result.BuildTime > 0 {
		line += fmt.Sprintf(", built in %s", result.BuildTime.Round(1e9))
	}
	return line
}

// PrintSummary writes the summary and any warnings to the terminal.
func PrintSummary(fs types.FS, result *Result) {
	pterm.Success.Println(Summary(fs, result))
	for _, w := range result.Warnings {
		pterm.Warning.Println(w)
	}
}

func kegStats(fs types.FS, root string) (int, int64) {
	files := 0
	var size int64
	var walk func(dir string)
	walk = func(dir string) {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				walk(path)
				continue
			}
			files++
			if info, err := fs.Stat(path); err == nil {
				size += info.Size()
			}
		}
	}
	walk(root)
	return files, size
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(size)/float64(div), "KMGTPE"[exp])
}
