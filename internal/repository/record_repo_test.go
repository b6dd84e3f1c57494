package repository

import (
	"context"
	"path/filepath"
	"testing"

	"mindspark/internal/database"
)

func newSQLStore(t *testing.T) *SQLRecordStore {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLRecordStore(db)
}

func TestRecordStores(t *testing.T) {
	stores := map[string]RecordStore{
		"memory": NewMemoryRecordStore(),
		"sqlite": newSQLStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
			}

			if err := store.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			value, ok, err := store.Get(ctx, "k")
			if err != nil || !ok || value != "v2" {
				t.Fatalf("Get(k) = %q, %v, %v", value, ok, err)
			}

			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, ok, _ := store.Get(ctx, "k"); ok {
				t.Error("key still present after Delete")
			}
			if err := store.Delete(ctx, "k"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
		})
	}
}
