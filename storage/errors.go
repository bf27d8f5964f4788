package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an absent remote, registry or binary key.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate reports a name that already exists.
	ErrDuplicate = errors.New("storage: already exists")
	// ErrNotEmpty reports a registry removal blocked by stored binaries.
	ErrNotEmpty = errors.New("storage: registry not empty")
	// ErrBackendIO reports an underlying storage fault (disk, network).
	ErrBackendIO = errors.New("storage: backend i/o failure")
	// ErrDigestMismatch reports a tree transfer whose bytes did not match
	// the digest the sender advertised.
	ErrDigestMismatch = errors.New("storage: tree digest mismatch")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
func IsNotEmpty(err error) bool  { return errors.Is(err, ErrNotEmpty) }

// IOError wraps cause so it matches ErrBackendIO under errors.Is while
// keeping the underlying fault inspectable.
func IOError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrBackendIO, op, cause)
}
