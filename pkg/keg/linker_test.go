package keg_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/testutil"
)

func TestLink_MirrorsKegIntoPrefix(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	k := env.InstallKeg("wget", "1.21.4", map[string]string{
		"bin/wget":              "#!/bin/sh\n",
		"share/man/man1/wget.1": "manpage",
	})
	linker := keg.NewLinker(env.FS, env.Paths)

	n, err := linker.Link(k)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, linker.Linked(k))

	target, err := env.FS.Readlink(filepath.Join(env.Prefix, "bin", "wget"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(k.Path, "bin", "wget"), target)
}

func TestLink_AlreadyLinkedIsNoOp(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	k := env.InstallKeg("wget", "1.21.4", map[string]string{"bin/wget": "x"})
	linker := keg.NewLinker(env.FS, env.Paths)

	_, err := linker.Link(k)
	require.NoError(t, err)

	n, err := linker.Link(k)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLink_ConflictReportsAllPathsAndLinksNothing(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	k := env.InstallKeg("wget", "1.21.4", map[string]string{
		"bin/wget":  "x",
		"bin/wgetd": "y",
		"lib/libw":  "z",
	})
	// Two of the three targets are occupied by foreign files.
	for _, rel := range []string{"bin/wget", "lib/libw"} {
		path := filepath.Join(env.Prefix, rel)
		require.NoError(t, env.FS.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, env.FS.WriteFile(path, []byte("someone else"), 0644))
	}
	linker := keg.NewLinker(env.FS, env.Paths)

	_, err := linker.Link(k)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))

	conflicts, _ := errors.GetErrorDetails(err)["conflicts"].([]string)
	assert.Len(t, conflicts, 2, "every conflict is enumerated in one pass")

	// The non-conflicting target must not have been linked.
	_, statErr := env.FS.Stat(filepath.Join(env.Prefix, "bin", "wgetd"))
	assert.Error(t, statErr, "no partial linking on conflict")
	assert.False(t, linker.Linked(k))
}

func TestLink_OwnLinksFromPreviousRunAreNotConflicts(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	k := env.InstallKeg("wget", "1.21.4", map[string]string{"bin/wget": "x"})
	linker := keg.NewLinker(env.FS, env.Paths)

	_, err := linker.Link(k)
	require.NoError(t, err)

	// Drop the marker to simulate an interrupted earlier run; the links
	// themselves are still in place.
	require.NoError(t, env.FS.Remove(filepath.Join(k.Path, ".linked")))

	n, err := linker.Link(k)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "own stale links are replaced, not conflicts")
	assert.True(t, linker.Linked(k))
}

func TestUnlink_RemovesOnlyOwnLinks(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	k := env.InstallKeg("wget", "1.21.4", map[string]string{
		"bin/wget":  "x",
		"share/doc": "d",
	})
	linker := keg.NewLinker(env.FS, env.Paths)
	_, err := linker.Link(k)
	require.NoError(t, err)

	// A foreign file now occupies one of the keg's target paths.
	require.NoError(t, env.FS.Remove(filepath.Join(env.Prefix, "bin", "wget")))
	require.NoError(t, env.FS.WriteFile(filepath.Join(env.Prefix, "bin", "wget"), []byte("/other/place"), 0644))

	n, err := linker.Unlink(k)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only links into this keg are removed")
	assert.False(t, linker.Linked(k))

	_, statErr := env.FS.Stat(filepath.Join(env.Prefix, "bin", "wget"))
	assert.NoError(t, statErr, "foreign file survives unlink")
}

func TestOptLink_ReplacesPreviousVersion(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemory)
	oldKeg := env.InstallKeg("wget", "1.21.3", map[string]string{"bin/wget": "x"})
	newKeg := env.InstallKeg("wget", "1.21.4", map[string]string{"bin/wget": "y"})
	linker := keg.NewLinker(env.FS, env.Paths)

	require.NoError(t, linker.OptLink(oldKeg))
	require.NoError(t, linker.OptLink(newKeg))

	target, err := env.FS.Readlink(env.Paths.OptPath("wget"))
	require.NoError(t, err)
	assert.Equal(t, newKeg.Path, target)
}
