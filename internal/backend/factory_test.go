package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finml/internal/accounts"
	"finml/internal/config"
	"finml/internal/ledger/memory"
	"finml/internal/storage"
)

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("remote", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: RemoteBackend, AccountServiceURL: "http://localhost:8080", AccountServiceTimeout: time.Second})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		if _, ok := res.Backend.(*accounts.Client); !ok {
			t.Fatalf("expected *accounts.Client, got %T", res.Backend)
		}
	})

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		if _, ok := res.Backend.(*memory.Store); !ok {
			t.Fatalf("expected *memory.Store, got %T", res.Backend)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "b.db")})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		if _, ok := res.Backend.(*storage.SQLiteRepository); !ok {
			t.Fatalf("expected *storage.SQLiteRepository, got %T", res.Backend)
		}
		if _, ok := res.Backend.(Pinger); !ok {
			t.Fatalf("sqlite backend should be pingable")
		}
		if res.Cleanup == nil {
			t.Fatalf("sqlite backend needs a cleanup func")
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: "postgres"}); err == nil {
			t.Fatalf("expected error for unknown backend")
		}
		if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
			t.Fatalf("expected error for sheets backend without spreadsheet")
		}
	})
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:           "remote",
		AccountServiceURL:     "http://accounts:8080",
		AccountServiceTimeout: 3 * time.Second,
		DataDirectory:         "fixtures",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != RemoteBackend || got.AccountServiceURL != "http://accounts:8080" || got.DataDirectory != "fixtures" {
		t.Fatalf("unexpected backend config: %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Fatalf("expected error for invalid backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
