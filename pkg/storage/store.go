// Package storage persists collections as JSON array files under a per-user
// directory tree, and writes compressed binary snapshots next to them.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
)

const (
	usersDir            = "users"
	collectionExtension = ".json"
	defaultFileMode     = 0644
	defaultDirMode      = 0755
)

// Store reads and writes whole collections. It keeps no state between calls:
// every Read goes to disk and every Write replaces the file atomically.
type Store struct {
	dataDir  string
	fileMode os.FileMode
	logger   *zap.Logger
}

// NewStore creates a store rooted at the current directory unless WithDataDir is given.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		dataDir:  ".",
		fileMode: defaultFileMode,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// DataDir returns the root directory.
func (s *Store) DataDir() string { return s.dataDir }

// UserDir returns <data_dir>/users/<owner>.
func (s *Store) UserDir(owner string) string {
	return filepath.Join(s.dataDir, usersDir, owner)
}

// CollectionPath returns <data_dir>/users/<owner>/<name>.json. The path doubles
// as the collection key for the result cache.
func (s *Store) CollectionPath(owner, name string) string {
	return filepath.Join(s.UserDir(owner), name+collectionExtension)
}

// CreateUserDir provisions the directory that holds a user's collections.
func (s *Store) CreateUserDir(owner string) error {
	if err := ValidateName("username", owner); err != nil {
		return err
	}
	if err := os.MkdirAll(s.UserDir(owner), defaultDirMode); err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to create directory for user %s", owner)
	}
	return nil
}

// Exists reports whether the collection file is present.
func (s *Store) Exists(owner, name string) bool {
	if validateCollection(owner, name) != nil {
		return false
	}
	info, err := os.Stat(s.CollectionPath(owner, name))
	return err == nil && info.Mode().IsRegular()
}

// Create writes an empty collection. It fails with already-exists if the file is present.
func (s *Store) Create(owner, name string) error {
	if err := validateCollection(owner, name); err != nil {
		return err
	}
	if err := s.CreateUserDir(owner); err != nil {
		return err
	}

	path := s.CollectionPath(owner, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.NewError(domain.KindAlreadyExists, "database %s already exists for user %s", name, owner)
		}
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to create database %s", name)
	}
	defer file.Close()

	if _, err := file.WriteString("[]"); err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to initialise database %s", name)
	}

	s.logger.Info("created collection", zap.String("owner", owner), zap.String("collection", name))
	return nil
}

// Remove deletes a collection file. A missing file is not an error.
func (s *Store) Remove(owner, name string) error {
	if err := validateCollection(owner, name); err != nil {
		return err
	}
	if err := os.Remove(s.CollectionPath(owner, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to remove database %s", name)
	}
	s.logger.Info("removed collection", zap.String("owner", owner), zap.String("collection", name))
	return nil
}

// Read loads every document of a collection in file order. A missing file is
// not-found; unreadable or malformed content is precondition-failed. A file
// holding only whitespace reads as an empty collection.
func (s *Store) Read(owner, name string) ([]document.Value, error) {
	if err := validateCollection(owner, name); err != nil {
		return nil, err
	}

	path := s.CollectionPath(owner, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewError(domain.KindNotFound, "database %s not found for user %s", name, owner)
		}
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "failed to read database %s", name)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []document.Value{}, nil
	}

	docs, err := document.ParseArray(data)
	if err != nil {
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "database %s is corrupt", name)
	}
	return docs, nil
}

// Write replaces the collection with docs. The new content goes to a temporary
// file in the same directory which is then renamed over the old one, so a
// concurrent reader sees either the old or the new array, never a mix.
func (s *Store) Write(owner, name string, docs []document.Value) error {
	if err := validateCollection(owner, name); err != nil {
		return err
	}

	if docs == nil {
		docs = []document.Value{}
	}
	data, err := json.MarshalIndent(document.Array(docs...), "", "  ")
	if err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to encode database %s", name)
	}

	if err := s.CreateUserDir(owner); err != nil {
		return err
	}
	path := s.CollectionPath(owner, name)
	if err := s.writeAtomic(path, data); err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to write database %s", name)
	}

	s.logger.Debug("wrote collection",
		zap.String("owner", owner),
		zap.String("collection", name),
		zap.Int("documents", len(docs)),
		zap.Int("bytes", len(data)))
	return nil
}

// Size returns the collection file size in bytes.
func (s *Store) Size(owner, name string) (int64, error) {
	if err := validateCollection(owner, name); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.CollectionPath(owner, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, domain.NewError(domain.KindNotFound, "database %s not found for user %s", name, owner)
		}
		return 0, domain.WrapError(domain.KindPreconditionFailed, err, "failed to stat database %s", name)
	}
	return info.Size(), nil
}

// List returns the names of a user's collections, sorted.
func (s *Store) List(owner string) ([]string, error) {
	if err := ValidateName("username", owner); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.UserDir(owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "failed to list databases for user %s", owner)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), collectionExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), collectionExtension))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
