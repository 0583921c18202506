package instance

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireWritesPidFile(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "clevod.pid")

	// WHEN
	err := acquire(path)

	// THEN
	assert.NoError(t, err)
	data, readErr := os.ReadFile(path)
	assert.NoError(t, readErr)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestAcquireRefusesLiveInstance(t *testing.T) {
	// GIVEN
	// a pidfile of a live process (this one)
	path := filepath.Join(t.TempDir(), "clevod.pid")
	err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
	assert.NoError(t, err)

	// WHEN
	err = acquire(path)

	// THEN
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireTakesOverStalePidFile(t *testing.T) {
	// GIVEN
	// a pidfile of a process that no longer exists
	path := filepath.Join(t.TempDir(), "clevod.pid")
	err := os.WriteFile(path, []byte("99999999"), 0o644)
	assert.NoError(t, err)

	// WHEN
	err = acquire(path)

	// THEN
	assert.NoError(t, err)
	data, readErr := os.ReadFile(path)
	assert.NoError(t, readErr)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestAcquireIgnoresGarbagePidFile(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "clevod.pid")
	err := os.WriteFile(path, []byte("not-a-pid"), 0o644)
	assert.NoError(t, err)

	// WHEN
	err = acquire(path)

	// THEN
	assert.NoError(t, err)
}
