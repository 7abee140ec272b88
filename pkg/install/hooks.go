package install

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// runPostInstall invokes the package-supplied build procedure in
// post-install mode. The hook runs in the installer process, not the
// isolated build child: it mutates the live prefix by design.
func (in *Installer) runPostInstall(f *formula.Formula, k keg.Keg) error {
	if f.BuildScript == "" {
		return errors.Newf(errors.ErrPostInstall,
			"%s declares a post-install step but no build script", f.Name)
	}
	script := f.BuildScript
	if !filepath.IsAbs(script) {
		script = filepath.Join(filepath.Dir(f.Path), script)
	}

	cmd := exec.Command("bash", script, "post-install")
	cmd.Dir = filepath.Dir(script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"LBREW_FORMULA="+f.Name,
		"LBREW_VERSION="+f.Version,
		"LBREW_KEG="+k.Path,
		paths.EnvPrefix+"="+in.paths.Prefix(),
	)

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, errors.ErrPostInstall, "post-install script for %s", f.Name)
	}
	return nil
}
