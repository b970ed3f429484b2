// Package auth manages user accounts and the databases each user owns. Accounts
// live in users.json at the root of the data directory.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/storage"
)

// UsersFile is the accounts file name inside the data directory.
const UsersFile = "users.json"

// Database is one entry of a user's database list.
type Database struct {
	Name string `json:"namedb"`
}

// User is a stored account. Password holds the bcrypt hash.
type User struct {
	Name      string     `json:"user"`
	Password  string     `json:"password"`
	Databases []Database `json:"db"`
}

// Provisioner creates the on-disk storage for users and their databases.
type Provisioner interface {
	CreateUserDir(owner string) error
	Create(owner, name string) error
	Remove(owner, name string) error
}

// UserStore reads and writes users.json. All mutations are serialised.
type UserStore struct {
	mu          sync.Mutex
	path        string
	cost        int
	provisioner Provisioner
	logger      *zap.Logger
}

type Option func(*UserStore)

// WithBcryptCost sets the hashing cost for new passwords.
func WithBcryptCost(cost int) Option {
	return func(s *UserStore) {
		s.cost = cost
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *UserStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewUserStore opens <dataDir>/users.json, creating an empty one if needed.
func NewUserStore(dataDir string, provisioner Provisioner, options ...Option) (*UserStore, error) {
	s := &UserStore{
		path:        filepath.Join(dataDir, UsersFile),
		cost:        bcrypt.DefaultCost,
		provisioner: provisioner,
		logger:      zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := s.save([]User{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	return s, nil
}

// CreateUser registers a new account and provisions its directory.
func (s *UserStore) CreateUser(username, password string) error {
	if err := storage.ValidateName("username", username); err != nil {
		return err
	}
	if password == "" {
		return domain.NewError(domain.KindInvalidArgument, "password cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	if findUser(users, username) != nil {
		return domain.NewError(domain.KindAlreadyExists, "user %s already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.WrapError(domain.KindInvalidArgument, err, "failed to hash password")
	}
	if err := s.provisioner.CreateUserDir(username); err != nil {
		return err
	}

	users = append(users, User{Name: username, Password: string(hash), Databases: []Database{}})
	if err := s.save(users); err != nil {
		return err
	}

	s.logger.Info("user created", zap.String("user", username))
	return nil
}

// Authenticate checks a username and password.
func (s *UserStore) Authenticate(username, password string) error {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return verify(users, username, password)
}

// CreateDatabase creates an empty database owned by an authenticated user.
func (s *UserStore) CreateDatabase(username, password, name string) error {
	if err := storage.ValidateName("database name", name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	if err := verify(users, username, password); err != nil {
		return err
	}

	user := findUser(users, username)
	if user.hasDatabase(name) {
		return domain.NewError(domain.KindAlreadyExists, "database %s already exists for user %s", name, username)
	}
	if err := s.provisioner.Create(username, name); err != nil {
		return err
	}

	user.Databases = append(user.Databases, Database{Name: name})
	if err := s.save(users); err != nil {
		// Drop the file so a retry does not hit already-exists.
		if rmErr := s.provisioner.Remove(username, name); rmErr != nil {
			s.logger.Error("failed to remove unregistered database", zap.String("user", username),
				zap.String("database", name), zap.Error(rmErr))
		}
		return err
	}

	s.logger.Info("database created", zap.String("user", username), zap.String("database", name))
	return nil
}

// ListDatabases returns the names of an authenticated user's databases.
func (s *UserStore) ListDatabases(username, password string) ([]string, error) {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := verify(users, username, password); err != nil {
		return nil, err
	}

	user := findUser(users, username)
	names := make([]string, 0, len(user.Databases))
	for _, db := range user.Databases {
		names = append(names, db.Name)
	}
	return names, nil
}

// Authorize authenticates the user and checks that they own database name.
func (s *UserStore) Authorize(username, password, name string) error {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := verify(users, username, password); err != nil {
		return err
	}
	if !findUser(users, username).hasDatabase(name) {
		return domain.NewError(domain.KindPermissionDenied, "user %s has no database %s", username, name)
	}
	return nil
}

func verify(users []User, username, password string) error {
	user := findUser(users, username)
	if user == nil {
		return domain.NewError(domain.KindUnauthenticated, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.NewError(domain.KindUnauthenticated, "invalid credentials")
	}
	return nil
}

func findUser(users []User, username string) *User {
	i := slices.IndexFunc(users, func(u User) bool { return u.Name == username })
	if i < 0 {
		return nil
	}
	return &users[i]
}

func (u *User) hasDatabase(name string) bool {
	return slices.ContainsFunc(u.Databases, func(db Database) bool { return db.Name == name })
}

func (s *UserStore) load() ([]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "failed to read %s", UsersFile)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []User{}, nil
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "%s is corrupt", UsersFile)
	}
	return users, nil
}

func (s *UserStore) save(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to encode %s", UsersFile)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to write %s", UsersFile)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return domain.WrapError(domain.KindPreconditionFailed, err, "failed to replace %s", UsersFile)
	}
	return nil
}
