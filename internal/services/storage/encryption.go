package storage

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

func encrypt(data []byte, recipient age.Recipient) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decrypt(data []byte, identity age.Identity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// verifiedKeys derives the key pair for password and checks it against the
// verification file. Callers hold s.mu.
func (s *Storage) verifiedKeys(password string) (age.Identity, age.Recipient, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, nil, fmt.Errorf("creating identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, nil, fmt.Errorf("creating recipient: %w", err)
	}

	sealed, err := os.ReadFile(filepath.Join(s.root, verifyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("reading verification file: %w", err)
	}
	plain, err := decrypt(sealed, identity)
	if err != nil || string(plain) != verifyMagic {
		return nil, nil, ErrWrongPassword
	}
	return identity, recipient, nil
}

// EnableEncryption encrypts every stored document with password. On failure
// the files already converted are decrypted again.
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return ErrAlreadyEncrypted
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("creating recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}

	verifyPath := filepath.Join(s.root, verifyFile)
	sealed, err := encrypt([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("sealing verification file: %w", err)
	}
	if err := atomicWrite(verifyPath, sealed); err != nil {
		return fmt.Errorf("writing verification file: %w", err)
	}

	docs, err := s.documents()
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("scanning documents: %w", err)
	}

	var done []string
	for _, path := range docs {
		if err := rewrite(path, func(data []byte) ([]byte, error) {
			if isAgeEncrypted(data) {
				return nil, nil
			}
			return encrypt(data, recipient)
		}); err != nil {
			s.undo(done, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("encrypting %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}

	if err := atomicWrite(filepath.Join(s.root, markerFile), []byte("encrypted")); err != nil {
		return fmt.Errorf("writing marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption decrypts every stored document; password must match
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return ErrNotEncrypted
	}

	identity, _, err := s.verifiedKeys(password)
	if err != nil {
		return err
	}

	docs, err := s.documents()
	if err != nil {
		return fmt.Errorf("scanning documents: %w", err)
	}
	for _, path := range docs {
		if err := rewrite(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decrypt(data, identity)
		}); err != nil {
			return fmt.Errorf("decrypting %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.root, markerFile))
	os.Remove(filepath.Join(s.root, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// documents lists every .json file below the root
func (s *Storage) documents() ([]string, error) {
	var docs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isBookkeeping(path) {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			docs = append(docs, path)
		}
		return nil
	})
	return docs, err
}

// rewrite replaces the file at path with fn(content). A nil result from fn
// leaves the file untouched.
func rewrite(path string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := fn(data)
	if err != nil || out == nil {
		return err
	}
	return atomicWrite(path, out)
}

// undo decrypts files encrypted by a failed EnableEncryption, best effort
func (s *Storage) undo(paths []string, identity age.Identity) {
	for _, path := range paths {
		_ = rewrite(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decrypt(data, identity)
		})
	}
}
