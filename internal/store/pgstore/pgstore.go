// Package pgstore implements store.Store on PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/open-cbom/internal/auth"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/open-sspm/open-cbom/internal/store"
)

const uniqueViolation = "23505"

const (
	listDataSources = `
SELECT id, name, connection_type, format, status, last_error, service_count, last_updated
FROM data_sources
ORDER BY seq`

	getDataSource = `
SELECT id, name, connection_type, format, status, last_error, service_count, last_updated
FROM data_sources
WHERE id = $1`

	upsertDataSource = `
INSERT INTO data_sources (id, name, connection_type, format)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    connection_type = EXCLUDED.connection_type,
    format = CASE WHEN EXCLUDED.format <> '' THEN EXCLUDED.format ELSE data_sources.format END,
    updated_at = now()`

	pruneDataSources = `DELETE FROM data_sources WHERE NOT (id = ANY($1::text[]))`

	updateDataSourceStatus = `
UPDATE data_sources
SET status = $2, last_error = $3, updated_at = now()
WHERE id = $1`

	recordDataSourceSync = `
UPDATE data_sources
SET status = 'active',
    last_error = '',
    service_count = $2,
    last_updated = $3,
    format = CASE WHEN $4 <> '' THEN $4 ELSE format END,
    updated_at = now()
WHERE id = $1`

	deleteDocuments = `DELETE FROM documents WHERE source_id = $1`

	listDocuments = `
SELECT source_id, name, raw, fingerprint, fetched_at
FROM documents
WHERE source_id = $1
ORDER BY name`

	countUsers        = `SELECT count(*) FROM auth_users`
	countActiveAdmins = `SELECT count(*) FROM auth_users WHERE is_active AND role = $1`

	userColumns = `id, email, password_hash, role, is_active, created_at, last_login_at`

	getUserByEmail = `SELECT ` + userColumns + ` FROM auth_users WHERE lower(email) = lower($1)`
	getUserByID    = `SELECT ` + userColumns + ` FROM auth_users WHERE id = $1`

	createUser = `
INSERT INTO auth_users (email, password_hash, role)
VALUES ($1, $2, $3)
RETURNING ` + userColumns

	updateUserLastLogin = `UPDATE auth_users SET last_login_at = $2 WHERE id = $1`
)

// Store is a store.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func (s *Store) ListDataSources(ctx context.Context) ([]datasource.Descriptor, error) {
	rows, err := s.pool.Query(ctx, listDataSources)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var out []datasource.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	return out, nil
}

func (s *Store) GetDataSource(ctx context.Context, id string) (datasource.Descriptor, error) {
	d, err := scanDescriptor(s.pool.QueryRow(ctx, getDataSource, id))
	if err != nil {
		return datasource.Descriptor{}, mapError(fmt.Sprintf("data source %q", id), err)
	}
	return d, nil
}

func (s *Store) UpsertDataSource(ctx context.Context, d datasource.Descriptor) error {
	if _, err := s.pool.Exec(ctx, upsertDataSource, d.ID, d.Name, string(d.ConnectionType), d.Format); err != nil {
		return fmt.Errorf("upsert data source %q: %w", d.ID, err)
	}
	return nil
}

func (s *Store) PruneDataSources(ctx context.Context, keep []string) error {
	if keep == nil {
		keep = []string{}
	}
	if _, err := s.pool.Exec(ctx, pruneDataSources, keep); err != nil {
		return fmt.Errorf("prune data sources: %w", err)
	}
	return nil
}

func (s *Store) UpdateDataSourceStatus(ctx context.Context, id string, status datasource.Status, lastErr string) error {
	tag, err := s.pool.Exec(ctx, updateDataSourceStatus, id, string(status), lastErr)
	if err != nil {
		return fmt.Errorf("update data source %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("data source %q: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) RecordDataSourceSync(ctx context.Context, id string, res store.SyncResult) error {
	tag, err := s.pool.Exec(ctx, recordDataSourceSync, id, res.ServiceCount, res.SyncedAt, res.Format)
	if err != nil {
		return fmt.Errorf("record data source sync %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("data source %q: %w", id, store.ErrNotFound)
	}
	return nil
}

// ReplaceDocuments swaps the documents of a source in one transaction.
func (s *Store) ReplaceDocuments(ctx context.Context, sourceID string, docs []datasource.Document) error {
	if _, err := s.GetDataSource(ctx, sourceID); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteDocuments, sourceID); err != nil {
		return fmt.Errorf("delete documents of %q: %w", sourceID, err)
	}
	if len(docs) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"documents"},
			[]string{"source_id", "name", "raw", "fingerprint", "fetched_at"},
			pgx.CopyFromSlice(len(docs), func(i int) ([]any, error) {
				d := docs[i]
				return []any{sourceID, d.Name, d.Raw, d.Fingerprint, d.FetchedAt}, nil
			}),
		)
		if err != nil {
			return mapError(fmt.Sprintf("copy documents of %q", sourceID), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit documents of %q: %w", sourceID, err)
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, sourceID string) ([]datasource.Document, error) {
	rows, err := s.pool.Query(ctx, listDocuments, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %q: %w", sourceID, err)
	}
	defer rows.Close()

	var out []datasource.Document
	for rows.Next() {
		var d datasource.Document
		if err := rows.Scan(&d.SourceID, &d.Name, &d.Raw, &d.Fingerprint, &d.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents of %q: %w", sourceID, err)
	}
	return out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countActiveAdmins, auth.RoleAdmin).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, getUserByEmail, strings.TrimSpace(email)))
	if err != nil {
		return store.User{}, mapError(fmt.Sprintf("user %q", email), err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, getUserByID, id))
	if err != nil {
		return store.User{}, mapError(fmt.Sprintf("user %d", id), err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu store.NewUser) (store.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, createUser, nu.Email, nu.PasswordHash, nu.Role))
	if err != nil {
		return store.User{}, mapError(fmt.Sprintf("user %q", nu.Email), err)
	}
	return u, nil
}

func (s *Store) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, updateUserLastLogin, id, at)
	if err != nil {
		return fmt.Errorf("update last login of user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func scanDescriptor(row pgx.Row) (datasource.Descriptor, error) {
	var (
		d           datasource.Descriptor
		connType    string
		status      string
		lastUpdated *time.Time
	)
	if err := row.Scan(&d.ID, &d.Name, &connType, &d.Format, &status, &d.LastError, &d.ServiceCount, &lastUpdated); err != nil {
		return datasource.Descriptor{}, err
	}
	d.ConnectionType = datasource.ConnectionType(connType)
	d.Status = datasource.ParseStatus(status)
	if lastUpdated != nil {
		d.LastUpdated = lastUpdated.UTC()
	}
	return d, nil
}

func scanUser(row pgx.Row) (store.User, error) {
	var (
		u         store.User
		lastLogin *time.Time
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &lastLogin); err != nil {
		return store.User{}, err
	}
	if lastLogin != nil {
		u.LastLoginAt = *lastLogin
	}
	return u, nil
}

// mapError converts driver errors into store sentinels.
func mapError(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, store.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}
