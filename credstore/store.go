// Package credstore persists the single authentication record on disk and
// keeps an in-memory copy for the rest of the process.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/go-whoop/whoop-cli/config"
)

// AuthFile is the credential filename inside the config directory.
const AuthFile = "auth.json"

// Store loads, saves and clears the authentication record.
type Store struct {
	dir      string
	logger   *log.Logger
	lockWait time.Duration

	mu     sync.Mutex
	cached *Record
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLockTimeout bounds how long Save and Clear wait for another process
// holding the credential file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockWait = d
	}
}

// New creates a store that keeps auth.json inside dir.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, lockWait: defaultLockWait}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, AuthFile)
}

// FromEnv reports whether WHOOP_ACCESS_TOKEN currently overrides the store.
func (s *Store) FromEnv() bool {
	return os.Getenv(config.EnvAccessToken) != ""
}

// Load returns the current record or nil. WHOOP_ACCESS_TOKEN takes priority
// and is never written to disk. A corrupt or unreadable file counts as no record.
func (s *Store) Load() *Record {
	if token := os.Getenv(config.EnvAccessToken); token != "" {
		return &Record{
			AccessToken: token,
			ExpiresAt:   NeverExpires,
			FromEnv:     true,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached.Clone()
	}

	// #nosec G304 -- path is derived from the config directory
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.debug("unreadable credential file", err)
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.debug("corrupt credential file", err)
		return nil
	}
	if rec.AccessToken == "" {
		return nil
	}

	s.cached = &rec
	return rec.Clone()
}

// Save writes the full record with 0600 permissions and updates the cache.
// The write goes to a temp file that is renamed over auth.json, so a crash
// mid-write leaves the previous record intact.
func (s *Store) Save(rec *Record) error {
	if rec == nil {
		return errors.New("cannot save nil credential record")
	}
	if rec.FromEnv {
		return errors.New("refusing to persist a token taken from " + config.EnvAccessToken)
	}

	if err := config.EnsureDir(s.dir); err != nil {
		return err
	}

	path := s.Path()

	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer s.unlock(lock)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	data = append(data, '\n')

	tempFile := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename temp file: %v; additionally failed to remove temp file: %w",
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.mu.Lock()
	s.cached = rec.Clone()
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug().Str("path", path).Msg("credentials saved")
	}
	return nil
}

// Clear removes auth.json and the cache. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	if _, err := os.Stat(s.Path()); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer s.unlock(lock)

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug().Str("path", s.Path()).Msg("credentials cleared")
	}
	return nil
}

// ResetCache forces the next Load to read from disk.
func (s *Store) ResetCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Store) lock() (*writeLock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockWait)
	defer cancel()
	lock, err := lockRecord(ctx, s.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return lock, nil
}

func (s *Store) unlock(lock *writeLock) {
	if err := lock.unlock(); err != nil {
		s.debug("failed to release lock", err)
	}
}

func (s *Store) debug(msg string, err error) {
	if s.logger != nil {
		s.logger.Debug().Err(err).Str("path", s.Path()).Msg(msg)
	}
}
