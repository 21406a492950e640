package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	rel := "contact/0001.json"
	original := []byte(`{"name":"Jane Roe","email":"jane@example.com"}`)

	if err := store.WriteFile(rel, original); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	password := "testpassword123"
	if err := store.EnableEncryption(password); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	if !store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return true")
	}

	raw, _ := os.ReadFile(filepath.Join(dir, rel))
	if !isAgeEncrypted(raw) {
		t.Error("File should be encrypted on disk")
	}

	read, err := store.ReadFile(rel)
	if err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if string(read) != string(original) {
		t.Errorf("Content mismatch after encryption: got %q, want %q", read, original)
	}

	store.Lock()
	if store.IsUnlocked() {
		t.Error("Expected storage to be locked")
	}
	if _, err := store.ReadFile(rel); !errors.Is(err, ErrLocked) {
		t.Errorf("ReadFile while locked = %v, want ErrLocked", err)
	}
	if err := store.WriteFile("contact/0002.json", original); !errors.Is(err, ErrLocked) {
		t.Errorf("WriteFile while locked = %v, want ErrLocked", err)
	}

	if err := store.Unlock(password); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}

	if err := store.DisableEncryption(password); err != nil {
		t.Fatalf("Failed to disable encryption: %v", err)
	}
	if store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return false after disable")
	}

	raw, _ = os.ReadFile(filepath.Join(dir, rel))
	if string(raw) != string(original) {
		t.Errorf("Raw content mismatch after decryption: %q", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, markerFile)); !os.IsNotExist(err) {
		t.Error("Marker file should be removed")
	}
}

func TestWrongPassword(t *testing.T) {
	store, _ := New(t.TempDir())

	if err := store.WriteFile("contact/a.json", []byte(`{}`)); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := store.EnableEncryption("correctpassword"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	store.Lock()

	if err := store.Unlock("wrongpassword"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Unlock with wrong password = %v, want ErrWrongPassword", err)
	}
	if err := store.DisableEncryption("wrongpassword"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("DisableEncryption with wrong password = %v, want ErrWrongPassword", err)
	}
}

func TestEncryptionStateErrors(t *testing.T) {
	store, _ := New(t.TempDir())

	if err := store.EnableEncryption("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password = %v, want ErrPasswordTooShort", err)
	}
	if err := store.DisableEncryption("whatever123"); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("disable unencrypted = %v, want ErrNotEncrypted", err)
	}
	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("EnableEncryption: %v", err)
	}
	if err := store.EnableEncryption("testpassword123"); !errors.Is(err, ErrAlreadyEncrypted) {
		t.Errorf("second enable = %v, want ErrAlreadyEncrypted", err)
	}
}

func TestReopenDetectsEncryption(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("EnableEncryption: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !reopened.IsEncrypted() || reopened.IsUnlocked() {
		t.Error("reopened storage should be encrypted and locked")
	}
	if err := reopened.Unlock("testpassword123"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestNewFilesEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	content := []byte(`{"phone":"5551234567"}`)
	if err := store.WriteFile("consultation/new.json", content); err != nil {
		t.Fatalf("Failed to write new file: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "consultation", "new.json"))
	if !isAgeEncrypted(raw) {
		t.Error("New file should be encrypted on disk")
	}

	read, err := store.ReadFile("consultation/new.json")
	if err != nil {
		t.Fatalf("Failed to read new file: %v", err)
	}
	if string(read) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", read, content)
	}
}

func TestListAndRemove(t *testing.T) {
	store, _ := New(t.TempDir())

	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		if err := store.WriteFile("contact/"+name, []byte(`{}`)); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}

	names, err := store.List("contact")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "a.json" || names[1] != "b.json" {
		t.Errorf("List = %v, want [a.json b.json]", names)
	}

	missing, err := store.List("consultation")
	if err != nil || len(missing) != 0 {
		t.Errorf("List of missing dir = %v, %v; want empty, nil", missing, err)
	}

	if err := store.Remove("contact/a.json"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	names, _ = store.List("contact")
	if len(names) != 1 {
		t.Errorf("after Remove, List = %v", names)
	}
}

func TestRejectsPathTraversal(t *testing.T) {
	store, _ := New(t.TempDir())

	for _, rel := range []string{"../escape.json", "contact/../../escape.json", "/etc/passwd"} {
		if err := store.WriteFile(rel, []byte(`{}`)); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("WriteFile(%q) = %v, want ErrInvalidPath", rel, err)
		}
	}
}
