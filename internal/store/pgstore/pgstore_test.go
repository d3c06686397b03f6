package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/open-cbom/internal/auth"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/open-sspm/open-cbom/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	if err := mapError("user 1", pgx.ErrNoRows); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("mapError(ErrNoRows) = %v, want ErrNotFound", err)
	}
	if err := mapError("user a", &pgconn.PgError{Code: uniqueViolation}); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("mapError(unique) = %v, want ErrAlreadyExists", err)
	}
	boom := errors.New("boom")
	err := mapError("user a", boom)
	if !errors.Is(err, boom) || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("mapError(other) = %v", err)
	}
}

// TestStoreAgainstDatabase runs against a migrated database named by
// OPEN_CBOM_TEST_DATABASE_URL.
func TestStoreAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("OPEN_CBOM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OPEN_CBOM_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `TRUNCATE data_sources, documents, auth_users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	s := New(pool)
	if err := s.UpsertDataSource(ctx, datasource.Descriptor{ID: "payments", Name: "Payments", ConnectionType: datasource.ConnectionSingle}); err != nil {
		t.Fatalf("UpsertDataSource() error = %v", err)
	}
	synced := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := s.RecordDataSourceSync(ctx, "payments", store.SyncResult{Format: "cyclonedx-1.6", ServiceCount: 2, SyncedAt: synced}); err != nil {
		t.Fatalf("RecordDataSourceSync() error = %v", err)
	}
	got, err := s.GetDataSource(ctx, "payments")
	if err != nil {
		t.Fatalf("GetDataSource() error = %v", err)
	}
	if got.ServiceCount != 2 || !got.LastUpdated.Equal(synced) || got.Status != datasource.StatusActive {
		t.Fatalf("GetDataSource() = %+v", got)
	}

	docs := []datasource.Document{{Name: "b.json", Raw: []byte("{}"), Fingerprint: "f", FetchedAt: synced}}
	if err := s.ReplaceDocuments(ctx, "payments", docs); err != nil {
		t.Fatalf("ReplaceDocuments() error = %v", err)
	}
	listed, err := s.ListDocuments(ctx, "payments")
	if err != nil || len(listed) != 1 || listed[0].SourceID != "payments" {
		t.Fatalf("ListDocuments() = %+v, %v", listed, err)
	}
	if err := s.ReplaceDocuments(ctx, "missing", docs); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ReplaceDocuments(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := s.CreateUser(ctx, store.NewUser{Email: "admin@example.com", PasswordHash: "h", Role: auth.RoleAdmin}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := s.CreateUser(ctx, store.NewUser{Email: "Admin@example.com", PasswordHash: "h", Role: auth.RoleAdmin}); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("CreateUser(duplicate) error = %v, want ErrAlreadyExists", err)
	}
	if n, err := s.CountActiveAdmins(ctx); err != nil || n != 1 {
		t.Fatalf("CountActiveAdmins() = %d, %v", n, err)
	}

	if err := s.PruneDataSources(ctx, nil); err != nil {
		t.Fatalf("PruneDataSources() error = %v", err)
	}
	if _, err := s.GetDataSource(ctx, "payments"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetDataSource() after prune error = %v, want ErrNotFound", err)
	}
}
