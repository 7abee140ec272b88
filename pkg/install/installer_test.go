package install

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winordie-47/linuxbrew1/pkg/bottle"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/tab"
	"github.com/winordie-47/linuxbrew1/pkg/testutil"
)

// installFixture wires a full installer over an isolated real filesystem.
// Locks need flock and linking needs real symlinks, so memory will not do.
type installFixture struct {
	env     *testutil.TestEnvironment
	store   formula.Store
	checker *testutil.StubChecker
	fetcher *testutil.StubFetcher
	session *Session
	cfg     *config.Config
}

func newInstallFixture(t *testing.T) *installFixture {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	return &installFixture{
		env:     env,
		store:   formula.NewStore(env.FS, env.Paths),
		checker: &testutil.StubChecker{Satisfiable: map[string]bool{}},
		fetcher: &testutil.StubFetcher{
			FS:     env.FS,
			Cellar: formula.CellarAny,
		},
		session: NewSession(env.Paths),
		cfg:     config.Default(),
	}
}

func (fx *installFixture) installer(opts Options) *Installer {
	return New(fx.env.FS, fx.env.Paths, fx.store, fx.checker, fx.session, fx.cfg, fx.fetcher, opts)
}

// bottledFormula writes a formula whose bottle matches this machine. Extra
// descriptor text goes in front of the bottle table so its top-level keys
// stay top-level.
func (fx *installFixture) bottledFormula(t *testing.T, name string, extra string) {
	t.Helper()
	descriptor := fmt.Sprintf(`
name = %q
version = "1.0"
%s
[bottle]
cellar = "any"
platforms = [%q]
`, name, extra, bottle.CurrentPlatform())
	fx.env.WriteFormula(name, descriptor)
}

// buildDriver puts a stand-in build driver on PATH that installs a
// one-file keg for whichever formula it is handed. Call it before the
// installer is constructed, the driver is resolved once.
func (fx *installFixture) buildDriver(t *testing.T) {
	t.Helper()
	script := `#!/bin/sh
name=$(basename "$1" .toml)
mkdir -p "$LBREW_CELLAR/$name/1.0/bin"
echo "built $*" > "$LBREW_CELLAR/$name/1.0/bin/$name"
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lbrew-build"), []byte(script), 0755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestInstall_PoursBottleAndLinks(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)

	assert.Equal(t, StateFinished, result.State)
	assert.True(t, result.PouredFromBottle)
	assert.Equal(t, fx.env.Paths.KegPath("wget", "1.0"), result.KegPath)
	assert.Empty(t, result.Warnings)

	// Keg, prefix link and opt link are all in place.
	k := keg.New(fx.env.Paths, "wget", "1.0")
	assert.True(t, k.Exists(fx.env.FS))

	target, err := os.Readlink(filepath.Join(fx.env.Prefix, "bin", "wget"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(k.Path, "bin", "wget"), target)

	optTarget, err := os.Readlink(fx.env.Paths.OptPath("wget"))
	require.NoError(t, err)
	assert.Equal(t, k.Path, optTarget)

	// The receipt records the pour.
	receipt, err := tab.ForKeg(fx.env.FS, fx.env.Paths.TabPath("wget", "1.0"))
	require.NoError(t, err)
	assert.True(t, receipt.PouredFromBottle)

	// Every lock was released.
	assert.False(t, fx.session.Locks.Held())
}

func TestInstall_RecordsUsedOptionsInReceipt(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", `
[[option]]
name = "with-ssl"
description = "Build with TLS support"

[[option]]
name = "with-docs"
description = "Install documentation"
`)
	// Explicit options force a source build, which this fixture cannot
	// run, so keep the bottle in play and check option accounting only
	// through force-bottle.
	opts := Options{RequestedOptions: []string{"with-ssl"}, ForceBottle: true}

	result, err := fx.installer(opts).Install("wget")
	require.NoError(t, err)
	require.Equal(t, StateFinished, result.State)

	receipt, err := tab.ForKeg(fx.env.FS, fx.env.Paths.TabPath("wget", "1.0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"with-ssl"}, receipt.UsedOptions)
	assert.Equal(t, []string{"with-docs"}, receipt.UnusedOptions)
}

func TestInstall_UnknownOptionRejected(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")

	_, err := fx.installer(Options{RequestedOptions: []string{"with-lasers"}}).Install("wget")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrOptionUnrecognized))
}

func TestInstall_UnknownFormula(t *testing.T) {
	fx := newInstallFixture(t)

	_, err := fx.installer(Options{}).Install("missing")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFormulaNotFound))
}

func TestInstall_AlreadyInstalled(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")
	fx.env.InstallKeg("wget", "1.0", map[string]string{"bin/tool": "x"})

	_, err := fx.installer(Options{}).Install("wget")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyInstalled))
}

func TestInstall_AlreadyInstalledDependencyModeIsSilent(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")
	fx.env.InstallKeg("wget", "1.0", map[string]string{"bin/tool": "x"})

	result, err := fx.installer(Options{DependencyMode: true}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)
}

func TestInstall_SecondAttemptInOneSessionFails(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")

	_, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)

	// Same session, same formula: the keg from the first pass trips the
	// installed check only after the attempted check.
	_, err = fx.installer(Options{}).Install("wget")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyAttempted))
}

func TestInstall_DependenciesFirst(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "zlib", "")
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
`)

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)

	assert.Equal(t, []string{"zlib", "wget"}, fx.fetcher.Staged,
		"the dependency pours before the root")
	assert.True(t, keg.New(fx.env.Paths, "zlib", "1.0").Exists(fx.env.FS))
}

func TestInstall_RebuildsDependencyWithNewOptions(t *testing.T) {
	fx := newInstallFixture(t)
	fx.buildDriver(t)
	fx.bottledFormula(t, "zlib", `
[[option]]
name = "with-static"
description = "Also build the static archive"
`)
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
options = ["with-static"]
`)

	// zlib is installed and linked, but without the option wget needs.
	old := fx.env.InstallKeg("zlib", "1.0", map[string]string{"lib/libz.so": "old"})
	_, err := keg.NewLinker(fx.env.FS, fx.env.Paths).Link(old)
	require.NoError(t, err)

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)
	require.Equal(t, StateFinished, result.State)

	// The dependency was rebuilt in place, not lost: while the old keg sat
	// aside as a staged copy, the nested install must not mistake it for
	// an installed version and bail out.
	assert.Equal(t, "1.0", keg.InstalledVersion(fx.env.FS, fx.env.Paths, "zlib"))
	_, err = fx.env.FS.Lstat(fx.env.Paths.KegPath("zlib", "1.0") + paths.TmpSuffix)
	assert.True(t, os.IsNotExist(err), "the staged copy is discarded after a replacement")

	receipt, err := tab.ForKeg(fx.env.FS, fx.env.Paths.TabPath("zlib", "1.0"))
	require.NoError(t, err)
	assert.False(t, receipt.PouredFromBottle)
	assert.Equal(t, []string{"with-static"}, receipt.UsedOptions)
}

func TestInstall_DependencyWithOptionsBuildsFromSource(t *testing.T) {
	fx := newInstallFixture(t)
	fx.buildDriver(t)
	fx.bottledFormula(t, "zlib", `
[[option]]
name = "with-static"
description = "Also build the static archive"
`)
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
options = ["with-static"]
`)

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)
	require.Equal(t, StateFinished, result.State)

	// zlib's bottle matches this machine, but a bottle encodes one fixed
	// option set; the edge options rule the pour out.
	assert.Equal(t, []string{"wget"}, fx.fetcher.Staged, "only the root pours")

	receipt, err := tab.ForKeg(fx.env.FS, fx.env.Paths.TabPath("zlib", "1.0"))
	require.NoError(t, err)
	assert.False(t, receipt.PouredFromBottle)
	assert.Equal(t, []string{"with-static"}, receipt.UsedOptions)

	data, err := fx.env.FS.ReadFile(filepath.Join(fx.env.Paths.KegPath("zlib", "1.0"), "bin", "zlib"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "--with-static", "the option reached the build")
}

func TestInstall_OnlyDependencies(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "zlib", "")
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
`)

	result, err := fx.installer(Options{OnlyDependencies: true}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)

	assert.True(t, keg.New(fx.env.Paths, "zlib", "1.0").Exists(fx.env.FS))
	assert.False(t, keg.New(fx.env.Paths, "wget", "1.0").Exists(fx.env.FS))
}

func TestInstall_IgnoreDependencies(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "zlib", "")
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
`)

	result, err := fx.installer(Options{IgnoreDependencies: true}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)

	assert.False(t, keg.New(fx.env.Paths, "zlib", "1.0").Exists(fx.env.FS))
}

func TestInstall_UnlinkedDependencyBlocks(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "zlib", "")
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "zlib"
tag = "required"
`)
	// zlib is installed but carries no links into the prefix.
	fx.env.InstallKeg("zlib", "1.0", map[string]string{"lib/libz.so": "x"})

	_, err := fx.installer(Options{}).Install("wget")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnlinkedDependency))

	offenders, _ := errors.GetErrorDetails(err)["dependencies"].([]string)
	assert.Equal(t, []string{"zlib"}, offenders)
}

func TestInstall_ConflictWithLinkedFormula(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget2", "")
	fx.bottledFormula(t, "wget", "conflicts = [\"wget2\"]\n")

	_, err := fx.installer(Options{}).Install("wget2")
	require.NoError(t, err)

	_, err = fx.installer(Options{}).Install("wget")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFormulaConflict))
}

func TestInstall_IgnoreConflicts(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget2", "")
	// The stub stages distinct payload paths, so the kegs can coexist.
	fx.bottledFormula(t, "wget", "conflicts = [\"wget2\"]\n")

	_, err := fx.installer(Options{}).Install("wget2")
	require.NoError(t, err)

	result, err := fx.installer(Options{IgnoreConflicts: true}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)
}

func TestInstall_LinkConflictDowngradesToPartialFailure(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")

	// A foreign file occupies the link target.
	occupied := filepath.Join(fx.env.Prefix, "bin", "wget")
	require.NoError(t, fx.env.FS.MkdirAll(filepath.Dir(occupied), 0755))
	require.NoError(t, fx.env.FS.WriteFile(occupied, []byte("someone else"), 0644))

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err, "a link conflict is a warning, not a failure")

	assert.Equal(t, StatePartiallyFailed, result.State)
	assert.True(t, fx.session.Failed())
	assert.NotEmpty(t, result.Warnings)

	// Installed but unlinked.
	assert.True(t, keg.New(fx.env.Paths, "wget", "1.0").Exists(fx.env.FS))
	data, err := fx.env.FS.ReadFile(occupied)
	require.NoError(t, err)
	assert.Equal(t, "someone else", string(data))
}

func TestInstall_KegOnlyGetsOptLinkOnly(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "openssl", "keg_only = true\n")

	result, err := fx.installer(Options{}).Install("openssl")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)

	_, err = os.Lstat(filepath.Join(fx.env.Prefix, "bin", "openssl"))
	assert.True(t, os.IsNotExist(err), "keg-only formulae stay out of the prefix")

	optTarget, err := os.Readlink(fx.env.Paths.OptPath("openssl"))
	require.NoError(t, err)
	assert.Equal(t, fx.env.Paths.KegPath("openssl", "1.0"), optTarget)
}

func TestInstall_PourFailureIsFatalWhenStrict(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")
	failing := &testutil.FailingFetcher{}

	in := New(fx.env.FS, fx.env.Paths, fx.store, fx.checker, fx.session, fx.cfg, failing, Options{DevStrict: true})
	result, err := in.Install("wget")
	require.Error(t, err)

	assert.Equal(t, StateRolledBack, result.State)
	assert.False(t, keg.New(fx.env.Paths, "wget", "1.0").Exists(fx.env.FS))
}

func TestInstall_PourFailureFallsBackToSourceBuild(t *testing.T) {
	fx := newInstallFixture(t)
	fx.buildDriver(t)
	fx.env.WriteFormula("cmake", "name = \"cmake\"\nversion = \"1.0\"\n")
	fx.bottledFormula(t, "wget", `
[[dependency]]
name = "cmake"
tag = "build"
`)

	failing := &testutil.FailingFetcher{}
	in := New(fx.env.FS, fx.env.Paths, fx.store, fx.checker, fx.session, fx.cfg, failing, Options{})
	result, err := in.Install("wget")
	require.NoError(t, err)

	assert.Equal(t, StateFinished, result.State)
	assert.False(t, result.PouredFromBottle)
	assert.True(t, keg.New(fx.env.Paths, "wget", "1.0").Exists(fx.env.FS))

	// The build-only dependency was pruned while the bottle was assumed,
	// and installed once the fallback re-resolved the graph.
	assert.True(t, keg.New(fx.env.Paths, "cmake", "1.0").Exists(fx.env.FS))
	assert.Equal(t, []string{"wget"}, failing.Staged)
}

func TestInstall_RemovesStagingLeftovers(t *testing.T) {
	fx := newInstallFixture(t)
	fx.bottledFormula(t, "wget", "")

	// Leftover from an earlier aborted replacement.
	stale := fx.env.Paths.KegPath("wget", "0.9") + paths.TmpSuffix
	require.NoError(t, fx.env.FS.MkdirAll(stale, 0755))
	require.NoError(t, fx.env.FS.WriteFile(filepath.Join(stale, "stale"), []byte("x"), 0644))

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, result.State)

	_, err = fx.env.FS.Lstat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestInstall_RelocatesPouredBottle(t *testing.T) {
	fx := newInstallFixture(t)
	fx.fetcher.Files = map[string]string{
		"bin/tool": "#!/bin/sh\nexec @@LBREW_PREFIX@@/bin/real \"$@\"\n",
	}
	fx.bottledFormula(t, "wget", "")

	result, err := fx.installer(Options{}).Install("wget")
	require.NoError(t, err)
	require.Equal(t, StateFinished, result.State)

	data, err := fx.env.FS.ReadFile(filepath.Join(result.KegPath, "bin", "tool"))
	require.NoError(t, err)
	assert.Contains(t, string(data), fx.env.Prefix+"/bin/real")
	assert.NotContains(t, string(data), "@@LBREW_PREFIX@@")
}
