package arena

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock is an exclusive file lock shared by gauntlet processes that write profiles.
type Lock struct {
	file *os.File
}

// AcquireLock blocks until it holds <dir>/locks/arena.lock.
func AcquireLock(dir string) (*Lock, error) {
	file, err := openLockFile(dir)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock arena.lock: %w", err)
	}
	return &Lock{file: file}, nil
}

// TryAcquireLock takes the lock without blocking. It reports false if another process
// holds it.
func TryAcquireLock(dir string) (*Lock, bool, error) {
	file, err := openLockFile(dir)
	if err != nil {
		return nil, false, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, false, nil
	}
	return &Lock{file: file}, true, nil
}

func openLockFile(dir string) (*os.File, error) {
	locksDir := filepath.Join(dir, "locks")
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create locks dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(locksDir, "arena.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return file, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
