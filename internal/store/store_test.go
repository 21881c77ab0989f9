package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hubspace/internal/crypto"
	"hubspace/internal/domain"
	"hubspace/internal/store"
)

// cheap scrypt parameters keep the tests fast.
func newSessionStore(dir string) *store.SessionFileStore {
	return store.NewSessionFileStore(dir, store.WithScrypt(1<<10, 8, 1))
}

func TestSession_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	var sessions domain.SessionStore = newSessionStore(home)

	want := domain.Session{
		Username:     "user@example.com",
		RefreshToken: "refresh-1",
		SavedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := sessions.SaveSession("pass", want); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, ok, err := sessions.LoadSession("pass", "user@example.com")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !ok {
		t.Fatal("session not found after save")
	}
	if got.RefreshToken != want.RefreshToken || !got.SavedAt.Equal(want.SavedAt) {
		t.Fatalf("mismatch after load: %+v", got)
	}

	path := filepath.Join(home, "sessions", crypto.Fingerprint("user@example.com").String()+".json.enc")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read session file: %v", err)
	}
	if bytes.Contains(raw, []byte("refresh-1")) {
		t.Fatal("refresh token stored in clear text")
	}
}

func TestSession_WrongPassphrase_Fails(t *testing.T) {
	sessions := newSessionStore(t.TempDir())
	if err := sessions.SaveSession("correct", domain.Session{Username: "u", RefreshToken: "r"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	_, _, err := sessions.LoadSession("wrong", "u")
	if !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestSession_Missing(t *testing.T) {
	sessions := newSessionStore(t.TempDir())
	_, ok, err := sessions.LoadSession("pass", "nobody@example.com")
	if err != nil || ok {
		t.Fatalf("missing session: ok=%v err=%v", ok, err)
	}
}

func TestSession_Delete(t *testing.T) {
	sessions := newSessionStore(t.TempDir())
	if err := sessions.SaveSession("p", domain.Session{Username: "u", RefreshToken: "r"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := sessions.DeleteSession("u"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := sessions.LoadSession("p", "u"); ok {
		t.Fatal("session still present after delete")
	}
	if err := sessions.DeleteSession("u"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestSession_PerUser(t *testing.T) {
	sessions := newSessionStore(t.TempDir())
	for _, u := range []domain.Username{"a@example.com", "b@example.com"} {
		if err := sessions.SaveSession("p", domain.Session{Username: u, RefreshToken: "rt-" + u.String()}); err != nil {
			t.Fatalf("save %s: %v", u, err)
		}
	}
	got, ok, err := sessions.LoadSession("p", "b@example.com")
	if err != nil || !ok {
		t.Fatalf("load b: ok=%v err=%v", ok, err)
	}
	if got.RefreshToken != "rt-b@example.com" {
		t.Fatalf("got %q", got.RefreshToken)
	}
}

func TestSession_EmptyUsername(t *testing.T) {
	if err := newSessionStore(t.TempDir()).SaveSession("p", domain.Session{}); err == nil {
		t.Fatal("expected error for empty username")
	}
}

func TestAccount_SaveLoadDelete(t *testing.T) {
	home := t.TempDir()
	var accounts domain.AccountStore = store.NewAccountFileStore(home)

	if _, ok, err := accounts.LoadAccountProfile("user@example.com"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	p := domain.AccountProfile{Username: "user@example.com", AccountID: "acct-1", UpdatedAt: time.Now().UTC()}
	if err := accounts.SaveAccountProfile(p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if err := accounts.SaveAccountProfile(domain.AccountProfile{Username: "other@example.com", AccountID: "acct-2"}); err != nil {
		t.Fatalf("save other profile: %v", err)
	}

	got, ok, err := accounts.LoadAccountProfile("User@Example.com")
	if err != nil || !ok {
		t.Fatalf("load profile: ok=%v err=%v", ok, err)
	}
	if got.AccountID != "acct-1" {
		t.Fatalf("account id = %q", got.AccountID)
	}

	if err := accounts.DeleteAccountProfile("user@example.com"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if _, ok, _ := accounts.LoadAccountProfile("user@example.com"); ok {
		t.Fatal("profile still present after delete")
	}
	if _, ok, _ := accounts.LoadAccountProfile("other@example.com"); !ok {
		t.Fatal("delete removed another user's profile")
	}
}

func TestAccount_CorruptFile(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "accounts.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	accounts := store.NewAccountFileStore(home)
	if _, _, err := accounts.LoadAccountProfile("u"); err == nil {
		t.Fatal("expected error for corrupt accounts file")
	}
	if err := accounts.SaveAccountProfile(domain.AccountProfile{Username: "u"}); err == nil {
		t.Fatal("save must not overwrite a corrupt accounts file")
	}
}
