package build

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/interrupt"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/options"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// DriverName is the fixed build-driver entry point spawned per build.
const DriverName = "lbrew-build"

// Runner spawns one build subprocess per formula and guarantees no partial
// keg survives a failed build.
type Runner struct {
	fs     types.FS
	paths  paths.Paths
	cfg    config.Build
	driver string
	logger zerolog.Logger
}

// NewRunner creates a Runner. The build driver is looked up next to the
// running executable first, then on PATH.
func NewRunner(fs types.FS, p paths.Paths, cfg config.Build) *Runner {
	return &Runner{
		fs:     fs,
		paths:  p,
		cfg:    cfg,
		driver: findDriver(),
		logger: logging.GetLogger("build.runner"),
	}
}

func findDriver() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), DriverName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if path, err := exec.LookPath(DriverName); err == nil {
		return path
	}
	return DriverName
}

// Run builds the formula in a child process. On any failure the partial
// keg, and its cellar container if emptied, are removed before the error
// is returned.
func (r *Runner) Run(f *formula.Formula, buildOpts options.Build) error {
	k := keg.New(r.paths, f.Name, f.Version)

	err := r.run(f, buildOpts, k)
	if err == nil {
		return nil
	}

	// No partial artifact survives a failed build.
	if rmErr := k.Remove(r.fs); rmErr != nil {
		r.logger.Warn().Err(rmErr).Str("keg", k.Path).Msg("Failed to remove keg after build failure")
	}
	return err
}

func (r *Runner) run(f *formula.Formula, buildOpts options.Build, k keg.Keg) error {
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, errors.ErrBuildFailed, "creating error pipe")
	}
	defer func() { _ = readEnd.Close() }()

	args := []string{f.Path, "--variant=" + string(f.Variant)}
	args = append(args, buildOpts.Flags()...)

	cmd := exec.Command(r.driver, args...)
	cmd.Env = r.childEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// ExtraFiles[0] becomes fd 3 in the child.
	cmd.ExtraFiles = []*os.File{writeEnd}
	// Own process group, so an interrupt can be forwarded to the whole
	// build rather than delivered to the installer.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	r.logger.Info().
		Str("formula", f.Name).
		Str("driver", r.driver).
		Strs("options", buildOpts.Flags()).
		Msg("Spawning build")

	if err := cmd.Start(); err != nil {
		_ = writeEnd.Close()
		return errors.Wrapf(err, errors.ErrBuildFailed, "spawning build driver for %s", f.Name)
	}
	// The parent's copy of the write end must close so the read below
	// terminates when the child exits.
	_ = writeEnd.Close()

	payload := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(readEnd)
		payload <- data
	}()

	waitErr := r.wait(cmd)
	received := <-payload

	if len(received) > 0 {
		return DecodeRecord(received, f.Name)
	}
	if waitErr != nil {
		if status, ok := exitStatus(waitErr); ok {
			if status.Signaled() && status.Signal() == syscall.SIGINT {
				return errors.Newf(errors.ErrBuildInterrupted, "build of %s interrupted", f.Name)
			}
			if status.ExitStatus() == ExitInterrupted {
				return errors.Newf(errors.ErrBuildInterrupted, "build of %s interrupted", f.Name)
			}
		}
		return errors.Wrapf(waitErr, errors.ErrBuildSuspicious,
			"build of %s exited suspiciously", f.Name)
	}

	empty, err := k.Empty(r.fs)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBuildFailed, "inspecting keg for %s", f.Name)
	}
	if empty {
		return errors.Newf(errors.ErrEmptyInstall, "build of %s installed nothing", f.Name)
	}
	return nil
}

// wait blocks on the child with the parent's own interrupt handling
// deferred: a user interrupt is forwarded to the child's process group and
// surfaces as the child's failure, never as an abandoned build.
func (r *Runner) wait(cmd *exec.Cmd) error {
	signals := make(chan os.Signal, 4)
	interrupt.Notify(signals)
	defer interrupt.Stop(signals)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeout <-chan time.Time
	if r.cfg.TimeoutMinutes > 0 {
		timer := time.NewTimer(time.Duration(r.cfg.TimeoutMinutes) * time.Minute)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-timeout:
			r.logger.Error().Int("minutes", r.cfg.TimeoutMinutes).Msg("Build timed out, killing")
			if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to kill timed-out build")
			}
		case sig := <-signals:
			s, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			r.logger.Info().Str("signal", s.String()).Msg("Forwarding interrupt to build")
			if err := syscall.Kill(-cmd.Process.Pid, s); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to forward signal to build")
			}
		case err := <-done:
			return err
		}
	}
}

func (r *Runner) childEnv() []string {
	env := []string{
		EnvErrorPipe + "=3",
		paths.EnvPrefix + "=" + r.paths.Prefix(),
		paths.EnvCellar + "=" + r.paths.Cellar(),
	}
	for _, name := range r.cfg.EnvAllowList {
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}
	return env
}

func exitStatus(err error) (syscall.WaitStatus, bool) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 0, false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return status, ok
}
