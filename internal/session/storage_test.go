package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	storage, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if err := storage.Set(tokenKey, "T1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := storage.Set(userKey, `{"name":"Ann"}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if value, ok := reloaded.Get(tokenKey); !ok || value != "T1" {
		t.Fatalf("token did not survive reload: %q %v", value, ok)
	}

	if err := reloaded.Remove(tokenKey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	again, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := again.Get(tokenKey); ok {
		t.Fatalf("removed key came back")
	}
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	storage, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("corrupt file must not fail open: %v", err)
	}
	if _, ok := storage.Get(tokenKey); ok {
		t.Fatalf("corrupt file must read as empty")
	}
}
