package install

import (
	"os"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/interrupt"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// swapDependency replaces an already-installed dependency atomically: the
// old keg is unlinked and renamed to a temporary sibling before the nested
// install runs, and restored bit-for-bit if anything fails. The staging and
// restoration windows run with interrupt delivery deferred so the
// filesystem cannot be left half-swapped.
func (in *Installer) swapDependency(oldKeg keg.Keg, installFn func() error) error {
	tmpPath := oldKeg.Path + paths.TmpSuffix
	wasLinked := false

	err := interrupt.Defer(func() error {
		if in.linker.Linked(oldKeg) {
			wasLinked = true
			if _, err := in.linker.Unlink(oldKeg); err != nil {
				return err
			}
		}
		if err := in.fs.Rename(oldKeg.Path, tmpPath); err != nil {
			return errors.Wrapf(err, errors.ErrSwapRestore,
				"staging %s aside for replacement", oldKeg.Path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	installErr := installFn()
	if installErr == nil {
		// The replacement is installed; the aside copy is discarded.
		if err := in.fs.RemoveAll(tmpPath); err != nil {
			in.logger.Warn().Err(err).Str("path", tmpPath).Msg("Failed to remove staged copy")
		}
		return nil
	}

	restoreErr := interrupt.Defer(func() error {
		// Restore only if nothing now occupies the original path.
		if _, err := in.fs.Lstat(oldKeg.Path); err == nil {
			in.logger.Warn().
				Str("path", oldKeg.Path).
				Msg("Replacement left a keg behind, keeping staged copy aside")
		} else if os.IsNotExist(err) {
			if err := in.fs.Rename(tmpPath, oldKeg.Path); err != nil {
				return errors.Wrapf(err, errors.ErrSwapRestore,
					"restoring %s after failed replacement", oldKeg.Path)
			}
			if wasLinked {
				if _, err := in.linker.Link(oldKeg); err != nil {
					return err
				}
			}
		} else {
			return errors.Wrapf(err, errors.ErrSwapRestore,
				"inspecting %s after failed replacement", oldKeg.Path)
		}
		return nil
	})
	if restoreErr != nil {
		in.logger.Error().Err(restoreErr).Str("keg", oldKeg.Path).Msg("Swap restoration failed")
	}

	return installErr
}
