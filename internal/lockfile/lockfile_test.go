package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	lock, err := Acquire(dir)
	require.NoError(t, err)
	t.Cleanup(func() { lock.Release() })

	assert.Equal(t, filepath.Join(dir, FileName), lock.Path())
	h, err := ReadHolder(lock.Path())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), h.PID)
	assert.WithinDuration(t, time.Now(), h.Started, time.Minute)
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	require.NoError(t, err)
	t.Cleanup(func() { lock.Release() })

	second, err := Acquire(dir)
	require.Error(t, err)
	assert.Nil(t, second)

	var lockErr *LockError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, os.Getpid(), lockErr.Holder.PID, "holder record survives the failed attempt")
	assert.Contains(t, err.Error(), "another FieldOps process")
	assert.Contains(t, err.Error(), lock.Path())
	assert.Contains(t, err.Error(), "(running)")
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release(), "second release is a no-op")

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(err))

	again, err := Acquire(dir)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestStaleLockFileIsTakenOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("pid=999999\n"), 0o644))

	lock, err := Acquire(dir)
	require.NoError(t, err)
	t.Cleanup(func() { lock.Release() })

	h, err := ReadHolder(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), h.PID)
}

func TestHolderString(t *testing.T) {
	assert.Equal(t, "unknown process", Holder{}.String())
	assert.Contains(t, Holder{PID: os.Getpid()}.String(), "(running)")

	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "PID 999999 started 2024-05-01T09:00:00Z (not running, stale lock)",
		Holder{PID: 999999, Started: started}.String())
}

func TestReadHolderIgnoresNoise(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("garbage\npid=42\nstarted=not-a-time\n"), 0o644))

	h, err := ReadHolder(path)
	require.NoError(t, err)
	assert.Equal(t, 42, h.PID)
	assert.True(t, h.Started.IsZero())
}
