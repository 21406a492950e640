// Package storage keeps JSON documents under a directory, optionally
// encrypted at rest with a password-derived age key.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of every age-encrypted file
	ageHeader = "age-encryption.org"

	// markerFile exists while encryption is enabled
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the current password
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"solarman-submissions","version":1}`

	// filePerm keeps submission files private; they hold contact details
	filePerm = 0o600
	dirPerm  = 0o750

	minPasswordLength = 8
)

var (
	ErrLocked           = errors.New("storage is locked")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrAlreadyEncrypted = errors.New("encryption is already enabled")
	ErrNotEncrypted     = errors.New("encryption is not enabled")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidPath      = errors.New("path escapes storage root")
)

// Storage reads and writes files relative to a root directory, encrypting
// them transparently once encryption has been enabled and unlocked
type Storage struct {
	root      string
	encrypted bool
	identity  age.Identity
	recipient age.Recipient
	mu        sync.RWMutex
}

// New opens the storage rooted at dir, creating it if needed
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	s := &Storage{root: dir}
	if _, err := os.Stat(filepath.Join(dir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// Root returns the storage directory
func (s *Storage) Root() string {
	return s.root
}

// IsEncrypted reports whether encryption is enabled
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read and written
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock loads the key for an encrypted storage
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, recipient, err := s.verifiedKeys(password)
	if err != nil {
		return err
	}
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock forgets the key
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile returns the decrypted content of the file at rel
func (s *Storage) ReadFile(rel string) ([]byte, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isAgeEncrypted(data) {
		return data, nil
	}
	if s.identity == nil {
		return nil, ErrLocked
	}
	return decrypt(data, s.identity)
}

// WriteFile atomically replaces the file at rel, encrypting it when
// encryption is enabled. Writing to a locked encrypted storage fails rather
// than leaking plaintext.
func (s *Storage) WriteFile(rel string, data []byte) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && !isBookkeeping(path) {
		if s.recipient == nil {
			return ErrLocked
		}
		data, err = encrypt(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", rel, err)
		}
	}

	return atomicWrite(path, data)
}

// Remove deletes the file at rel
func (s *Storage) Remove(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// List returns the sorted names of the .json files directly under dir.
// A missing directory is empty.
func (s *Storage) List(dir string) ([]string, error) {
	path, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// resolve maps rel onto the root, refusing anything that climbs out of it
func (s *Storage) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, clean), nil
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// isBookkeeping reports files that are never encrypted
func isBookkeeping(path string) bool {
	base := filepath.Base(path)
	return base == markerFile || base == verifyFile
}

func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
