package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = AcquireLock(dir)
	require.Error(t, err)

	var locked *InstanceLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, os.Getpid(), locked.PID)
	assert.False(t, locked.Since.IsZero())

	require.NoError(t, lock.Release())

	// Released locks are reacquirable.
	lock, err = AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestAcquireLockReclaimsStaleOwnerFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// A leftover owner file without a held flock means the previous holder
	// died; acquisition must still succeed.
	ownerPath := filepath.Join(dir, ownerFileName)
	require.NoError(t, os.WriteFile(ownerPath,
		[]byte(`{"pid":999999,"token":"dead","since":"2026-01-01T00:00:00Z"}`), 0o600))

	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	_, statErr := os.Stat(ownerPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReleaseRemovesArtifactsExceptLockFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ownerFileName))
	require.NoError(t, err)

	require.NoError(t, lock.Release())

	_, err = os.Stat(filepath.Join(dir, ownerFileName))
	assert.True(t, os.IsNotExist(err))
}
