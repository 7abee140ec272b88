// Package tab persists the install receipt of a keg: which options it was
// built with and whether it was poured from a bottle. Written once after a
// successful install, read during dependency resolution.
package tab

import (
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/options"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Tab is the persisted metadata of an installed keg.
type Tab struct {
	UsedOptions      []string  `toml:"used_options"`
	UnusedOptions    []string  `toml:"unused_options"`
	PouredFromBottle bool      `toml:"poured_from_bottle"`
	Variant          string    `toml:"variant"`
	Time             time.Time `toml:"time"`
}

// Empty returns a tab recording no options and no bottle provenance,
// used when a keg predates receipt writing.
func Empty() *Tab {
	return &Tab{}
}

// Options returns the recorded used options as a set
func (t *Tab) Options() *options.Set {
	return options.FromNames(t.UsedOptions...)
}

// ForKeg reads the receipt at tabPath. A missing receipt yields an empty
// tab, not an error: kegs installed by older versions carry none.
func ForKeg(fs types.FS, tabPath string) (*Tab, error) {
	data, err := fs.ReadFile(tabPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, errors.Wrapf(err, errors.ErrTabRead, "reading receipt %s", tabPath)
	}
	t := &Tab{}
	if err := toml.Unmarshal(data, t); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTabRead, "parsing receipt %s", tabPath)
	}
	return t, nil
}

// Write stores the receipt at tabPath.
func (t *Tab) Write(fs types.FS, tabPath string) error {
	if t.Time.IsZero() {
		t.Time = time.Now()
	}
	data, err := toml.Marshal(t)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTabWrite, "encoding receipt %s", tabPath)
	}
	if err := fs.WriteFile(tabPath, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrTabWrite, "writing receipt %s", tabPath)
	}
	return nil
}
