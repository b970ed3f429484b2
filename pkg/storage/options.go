package storage

import (
	"os"

	"go.uber.org/zap"
)

type StoreOption func(*Store)

func WithDataDir(dir string) StoreOption {
	return func(s *Store) {
		s.dataDir = dir
	}
}

func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileMode sets the permissions used for collection and snapshot files.
func WithFileMode(mode os.FileMode) StoreOption {
	return func(s *Store) {
		s.fileMode = mode
	}
}
