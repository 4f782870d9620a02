package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another pass holds the lock file.
var ErrLocked = errors.New("another pipeline pass is running")

// Lock is an exclusive lock file shared by every process using the same database.
type Lock struct {
	fl *flock.Flock
}

func NewLock(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Acquire takes the lock without waiting.
func (l *Lock) Acquire() error {
	if dir := filepath.Dir(l.fl.Path()); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory: %w", err)
		}
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (l *Lock) Release() error {
	return l.fl.Unlock()
}
