package gitrepo

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpenInitializesMissingRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Open(dir)
	require.NoError(t, err)

	// A second open finds the repository created by the first.
	_, err = Open(dir)
	require.NoError(t, err)

	_, err = gogit.PlainOpen(dir)
	assert.NoError(t, err)
}

func TestStageAndCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client, err := Open(dir)
	require.NoError(t, err)

	writeFile(t, dir, "xsiam/biocs/rule-1.yaml", "rule_id: rule-1\n")
	require.NoError(t, client.Stage([]string{"xsiam/biocs/rule-1.yaml"}))

	staged, err := client.HasStagedChanges()
	require.NoError(t, err)
	assert.True(t, staged)

	hash, err := client.Commit("Pull xsiam: 1 added, 0 updated, 0 removed")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	staged, err = client.HasStagedChanges()
	require.NoError(t, err)
	assert.False(t, staged)

	// The commit carries the fallback identity when none is configured.
	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, fallbackAuthorName, commit.Author.Name)
	assert.Equal(t, "Pull xsiam: 1 added, 0 updated, 0 removed", commit.Message)
}

func TestStageDeletedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client, err := Open(dir)
	require.NoError(t, err)

	writeFile(t, dir, "xsiam/dashboards/d1.yaml", "global_id: d1\n")
	require.NoError(t, client.Stage([]string{"xsiam/dashboards/d1.yaml"}))
	_, err = client.Commit("add")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "xsiam/dashboards/d1.yaml")))
	require.NoError(t, client.Stage([]string{"xsiam/dashboards/d1.yaml"}))

	staged, err := client.HasStagedChanges()
	require.NoError(t, err)
	assert.True(t, staged)

	_, err = client.Commit("remove")
	require.NoError(t, err)

	staged, err = client.HasStagedChanges()
	require.NoError(t, err)
	assert.False(t, staged)
}

func TestStageOnlyTouchesGivenPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client, err := Open(dir)
	require.NoError(t, err)

	writeFile(t, dir, "tracked.yaml", "a: 1\n")
	writeFile(t, dir, "untouched.yaml", "b: 2\n")
	require.NoError(t, client.Stage([]string{"tracked.yaml"}))
	_, err = client.Commit("selective")
	require.NoError(t, err)

	dirty, err := client.DirtyPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"untouched.yaml"}, dirty)
}

func TestDirtyPathsIgnoresLockArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client, err := Open(dir)
	require.NoError(t, err)

	writeFile(t, dir, ".gcgit.lock", "")
	writeFile(t, dir, ".gcgit.lock.owner", "{}")

	dirty, err := client.DirtyPaths()
	require.NoError(t, err)
	assert.Empty(t, dirty)
}
