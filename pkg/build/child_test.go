package build

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// childFixture prepares a prefix, a formula descriptor and a build script
// for an in-process driver invocation.
type childFixture struct {
	prefix     string
	descriptor string
}

func newChildFixture(t *testing.T, script string) *childFixture {
	t.Helper()
	dir := t.TempDir()
	prefix := filepath.Join(dir, "prefix")
	t.Setenv(paths.EnvPrefix, prefix)
	t.Setenv(paths.EnvCellar, "")
	t.Setenv(EnvErrorPipe, "")

	scriptPath := filepath.Join(dir, "build.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0755))

	descriptor := filepath.Join(dir, "wget.toml")
	content := fmt.Sprintf("name = %q\nversion = %q\nbuild_script = %q\n", "wget", "1.0", scriptPath)
	require.NoError(t, os.WriteFile(descriptor, []byte(content), 0644))

	return &childFixture{prefix: prefix, descriptor: descriptor}
}

func TestMain_RunsBuildScript(t *testing.T) {
	fx := newChildFixture(t, `#!/bin/bash
mkdir -p "$LBREW_KEG/bin"
printf '%s %s %s\n' "$LBREW_FORMULA" "$LBREW_VERSION" "$LBREW_VARIANT" > "$LBREW_KEG/bin/wget"
`)

	status := Main([]string{fx.descriptor, "--variant=stable"})
	require.Equal(t, 0, status)

	data, err := os.ReadFile(filepath.Join(fx.prefix, "Cellar", "wget", "1.0", "bin", "wget"))
	require.NoError(t, err)
	assert.Equal(t, "wget 1.0 stable\n", string(data))
}

func TestMain_PassesOptionFlagsToScript(t *testing.T) {
	fx := newChildFixture(t, `#!/bin/bash
mkdir -p "$LBREW_KEG"
printf '%s\n' "$@" > "$LBREW_KEG/args"
`)

	status := Main([]string{fx.descriptor, "--variant=stable", "--with-ssl", "--universal"})
	require.Equal(t, 0, status)

	data, err := os.ReadFile(filepath.Join(fx.prefix, "Cellar", "wget", "1.0", "args"))
	require.NoError(t, err)
	assert.Equal(t, "--with-ssl\n--universal\n", string(data))
}

func TestMain_ScriptFailureSerializedOverPipe(t *testing.T) {
	fx := newChildFixture(t, "#!/bin/bash\nexit 3\n")

	readEnd, writeEnd, err := os.Pipe()
	require.NoError(t, err)
	defer readEnd.Close()
	t.Setenv(EnvErrorPipe, fmt.Sprintf("%d", writeEnd.Fd()))

	status := Main([]string{fx.descriptor})
	assert.Equal(t, ExitSerializedFailure, status)

	// Main wrapped and closed the write end's descriptor, so the read
	// terminates on its own; closing writeEnd again would hit a reused fd.
	payload, err := io.ReadAll(readEnd)
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(payload, &rec))
	assert.Equal(t, KindBuild, rec.Kind)
	assert.Equal(t, float64(3), rec.Detail["exitStatus"])
}

func TestMain_MissingDescriptor(t *testing.T) {
	newChildFixture(t, "#!/bin/bash\n")

	status := Main([]string{"/nonexistent/formula.toml"})
	assert.Equal(t, ExitSerializedFailure, status)
}

func TestMain_NoBuildScriptDeclared(t *testing.T) {
	fx := newChildFixture(t, "#!/bin/bash\n")
	require.NoError(t, os.WriteFile(fx.descriptor, []byte("name = \"wget\"\nversion = \"1.0\"\n"), 0644))

	status := Main([]string{fx.descriptor})
	assert.Equal(t, ExitSerializedFailure, status)
}

func TestMain_NoArguments(t *testing.T) {
	newChildFixture(t, "#!/bin/bash\n")

	status := Main(nil)
	assert.Equal(t, ExitSerializedFailure, status)
}
