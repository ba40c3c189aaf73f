package manifest

import (
	"fmt"
	"os"
	"time"
)

// LockError is returned when the manifest lock could not be acquired.
type LockError struct {
	Path   string
	Holder string
	Err    error
}

func (e *LockError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("manifest lock %s held since %s", e.Path, e.Holder)
	}
	return fmt.Sprintf("acquire manifest lock %s: %v", e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// fileLock is an advisory lock backed by an exclusively-created sentinel
// file. The file body is the acquisition time in RFC 3339 so a crashed
// holder can be detected and the lock reclaimed after staleAfter.
type fileLock struct {
	path       string
	staleAfter time.Duration
	attempts   int
	baseDelay  time.Duration
	now        func() time.Time
}

// acquire takes the lock, retrying with doubling delays. failFast skips
// all retries and errors on first contention.
func (l *fileLock) acquire(failFast bool) error {
	attempts := l.attempts
	if failFast {
		attempts = 1
	}
	delay := l.baseDelay

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		ok, err := l.tryAcquire()
		if err != nil {
			return &LockError{Path: l.path, Err: err}
		}
		if ok {
			return nil
		}
		last = os.ErrExist
	}

	holder := ""
	if body, err := os.ReadFile(l.path); err == nil {
		holder = string(body)
	}
	return &LockError{Path: l.path, Holder: holder, Err: last}
}

// tryAcquire makes one acquisition attempt. A stale or corrupt lock file
// is removed and creation retried within the same attempt, so reclaiming
// an abandoned lock never counts as contention.
func (l *fileLock) tryAcquire() (bool, error) {
	for {
		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(l.now().UTC().Format(time.RFC3339))
			cerr := f.Close()
			if werr != nil {
				return false, werr
			}
			return true, cerr
		}
		if !os.IsExist(err) {
			return false, err
		}

		// Lock file exists. Reclaim it if the holder's timestamp is stale.
		body, rerr := os.ReadFile(l.path)
		if rerr != nil {
			if os.IsNotExist(rerr) {
				continue // released between open and read
			}
			return false, rerr
		}
		held, perr := time.Parse(time.RFC3339, string(body))
		if perr == nil && l.now().Sub(held) <= l.staleAfter {
			return false, nil // live holder
		}
		if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return false, rmErr
		}
		// Stale sentinel removed; recreate immediately.
	}
}

func (l *fileLock) release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release manifest lock: %w", err)
	}
	return nil
}
