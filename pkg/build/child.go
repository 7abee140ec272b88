package build

import (
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// Child is the build-driver side of the subprocess protocol. Every failure,
// before or during the build procedure, is serialized down the error pipe
// and turned into a distinguished exit status; nothing propagates past the
// child boundary silently.
type Child struct {
	pipe *os.File
}

// Main is the entry point of the lbrew-build binary. It returns the
// process exit status.
func Main(args []string) int {
	c := &Child{pipe: openErrorPipe()}

	if len(args) < 1 {
		return c.fail(Record{Kind: KindInternal, Message: "usage: lbrew-build <formula.toml> [--variant=v] [--option...]"})
	}

	descriptor := args[0]
	variant := string(formula.Stable)
	var optionFlags []string
	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "--variant=") {
			variant = strings.TrimPrefix(arg, "--variant=")
			continue
		}
		optionFlags = append(optionFlags, arg)
	}

	data, err := os.ReadFile(descriptor)
	if err != nil {
		return c.fail(Record{Kind: KindInternal, Message: "reading formula descriptor: " + err.Error()})
	}
	var f formula.Formula
	if err := toml.Unmarshal(data, &f); err != nil {
		return c.fail(Record{Kind: KindInternal, Message: "parsing formula descriptor: " + err.Error()})
	}
	if f.BuildScript == "" {
		return c.fail(Record{Kind: KindBuild, Message: "formula " + f.Name + " has no build script"})
	}

	p, err := paths.New("")
	if err != nil {
		return c.fail(Record{Kind: KindInternal, Message: err.Error()})
	}
	kegPath := p.KegPath(f.Name, f.Version)
	if err := os.MkdirAll(kegPath, 0755); err != nil {
		return c.fail(Record{Kind: KindInternal, Message: "creating keg: " + err.Error()})
	}

	return c.runScript(&f, descriptor, kegPath, variant, optionFlags, p)
}

func (c *Child) runScript(f *formula.Formula, descriptor, kegPath, variant string, optionFlags []string, p paths.Paths) int {
	script := f.BuildScript
	if !filepath.IsAbs(script) {
		script = filepath.Join(filepath.Dir(descriptor), script)
	}

	cmd := exec.Command("bash", append([]string{script}, optionFlags...)...)
	cmd.Dir = filepath.Dir(script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"LBREW_FORMULA="+f.Name,
		"LBREW_VERSION="+f.Version,
		"LBREW_VARIANT="+variant,
		"LBREW_KEG="+kegPath,
		paths.EnvPrefix+"="+p.Prefix(),
	)

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupted)

	if err := cmd.Start(); err != nil {
		return c.fail(Record{Kind: KindBuild, Message: "starting build script: " + err.Error()})
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case <-interrupted:
			// Forward the interrupt as this process's own failure.
			_ = cmd.Process.Signal(syscall.SIGTERM)
			<-done
			c.write(Record{Kind: KindInterrupt, Message: "build interrupted"})
			return ExitInterrupted
		case err := <-done:
			if err != nil {
				rec := Record{
					Kind:    KindBuild,
					Message: "build script failed: " + err.Error(),
					Detail:  map[string]interface{}{"script": script},
				}
				if status, ok := exitStatus(err); ok {
					rec.Detail["exitStatus"] = status.ExitStatus()
				}
				return c.fail(rec)
			}
			return 0
		}
	}
}

func (c *Child) fail(rec Record) int {
	c.write(rec)
	return ExitSerializedFailure
}

func (c *Child) write(rec Record) {
	if c.pipe == nil {
		// No pipe means a manual invocation; report on stderr instead.
		_, _ = os.Stderr.Write(append(rec.Encode(), '\n'))
		return
	}
	_, _ = c.pipe.Write(rec.Encode())
	_ = c.pipe.Close()
	c.pipe = nil
}

func openErrorPipe() *os.File {
	value := os.Getenv(EnvErrorPipe)
	if value == "" {
		return nil
	}
	fd, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return os.NewFile(uintptr(fd), "error-pipe")
}
