// Package store persists data source state, fetched CBOM documents and
// dashboard users.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/open-sspm/open-cbom/internal/datasource"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// User is a dashboard login.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

type NewUser struct {
	Email        string
	PasswordHash string
	Role         string
}

// SyncResult is written when a source has been fetched successfully.
type SyncResult struct {
	Format       string
	ServiceCount int
	SyncedAt     time.Time
}

type Store interface {
	ListDataSources(ctx context.Context) ([]datasource.Descriptor, error)
	GetDataSource(ctx context.Context, id string) (datasource.Descriptor, error)
	// UpsertDataSource writes the configured fields of d. Sync state of an
	// existing row is left untouched.
	UpsertDataSource(ctx context.Context, d datasource.Descriptor) error
	// PruneDataSources deletes every source, and its documents, whose id is not in keep.
	PruneDataSources(ctx context.Context, keep []string) error
	UpdateDataSourceStatus(ctx context.Context, id string, status datasource.Status, lastErr string) error
	RecordDataSourceSync(ctx context.Context, id string, res SyncResult) error

	ReplaceDocuments(ctx context.Context, sourceID string, docs []datasource.Document) error
	ListDocuments(ctx context.Context, sourceID string) ([]datasource.Document, error)

	CountUsers(ctx context.Context) (int64, error)
	CountActiveAdmins(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error
}
