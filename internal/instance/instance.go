package instance

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
)

const pidFileName = "clevod.pid"

var ErrAlreadyRunning = errors.New("another instance is already running")

// pidFilePath prefers /run and falls back to the temp dir when /run
// is not writable (e.g. unprivileged test runs).
func pidFilePath() string {
	runPath := filepath.Join("/run", pidFileName)
	if file, err := os.OpenFile(runPath, os.O_WRONLY|os.O_CREATE, 0o644); err == nil {
		_ = file.Close()
		return runPath
	}
	return filepath.Join(os.TempDir(), pidFileName)
}

// Acquire enforces that this process is the only clevod instance. The
// EC ports cannot be shared, so a second instance must refuse to
// start. A stale pidfile of a dead process is taken over.
func Acquire() error {
	return acquire(pidFilePath())
}

func acquire(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil && pid > 0 && processAlive(pid) {
			return ErrAlreadyRunning
		}
	}

	content := strconv.Itoa(os.Getpid())
	return atomic.WriteFile(path, bytes.NewReader([]byte(content)))
}

// Release removes the pidfile. Safe to call when Acquire failed.
func Release() {
	path := pidFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == os.Getpid() {
		_ = os.Remove(path)
	}
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
