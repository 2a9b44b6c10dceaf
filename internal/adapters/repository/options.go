package repository

import (
	"os"
	"time"
)

// BoltOption applies a configuration option to the BoltStore.
type BoltOption func(*BoltStore)

// WithOpenTimeout bounds how long Open waits for the file lock.
func WithOpenTimeout(d time.Duration) BoltOption {
	return func(s *BoltStore) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithFileMode sets the permissions of a newly created database file.
func WithFileMode(mode os.FileMode) BoltOption {
	return func(s *BoltStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}
