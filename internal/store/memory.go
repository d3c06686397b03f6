package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-sspm/open-cbom/internal/auth"
	"github.com/open-sspm/open-cbom/internal/datasource"
)

// Memory is a Store kept in process memory. It is used when no database is
// configured and in tests.
type Memory struct {
	mu        sync.RWMutex
	order     []string
	sources   map[string]datasource.Descriptor
	documents map[string][]datasource.Document
	users     []User
	nextUser  int64
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sources:   make(map[string]datasource.Descriptor),
		documents: make(map[string][]datasource.Document),
		now:       time.Now,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) ListDataSources(_ context.Context) ([]datasource.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datasource.Descriptor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sources[id])
	}
	return out, nil
}

func (m *Memory) GetDataSource(_ context.Context, id string) (datasource.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.sources[id]
	if !ok {
		return datasource.Descriptor{}, fmt.Errorf("data source %q: %w", id, ErrNotFound)
	}
	return d, nil
}

func (m *Memory) UpsertDataSource(_ context.Context, d datasource.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sources[d.ID]
	if !ok {
		if d.Status == "" {
			d.Status = datasource.StatusActive
		}
		m.order = append(m.order, d.ID)
		m.sources[d.ID] = d
		return nil
	}
	existing.Name = d.Name
	existing.ConnectionType = d.ConnectionType
	if d.Format != "" {
		existing.Format = d.Format
	}
	m.sources[d.ID] = existing
	return nil
}

func (m *Memory) PruneDataSources(_ context.Context, keep []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.order[:0]
	for _, id := range m.order {
		if slices.Contains(keep, id) {
			order = append(order, id)
			continue
		}
		delete(m.sources, id)
		delete(m.documents, id)
	}
	m.order = order
	return nil
}

func (m *Memory) UpdateDataSourceStatus(_ context.Context, id string, status datasource.Status, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("data source %q: %w", id, ErrNotFound)
	}
	d.Status = status
	d.LastError = lastErr
	m.sources[id] = d
	return nil
}

func (m *Memory) RecordDataSourceSync(_ context.Context, id string, res SyncResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("data source %q: %w", id, ErrNotFound)
	}
	d.Status = datasource.StatusActive
	d.LastError = ""
	d.ServiceCount = res.ServiceCount
	d.LastUpdated = res.SyncedAt
	if res.Format != "" {
		d.Format = res.Format
	}
	m.sources[id] = d
	return nil
}

func (m *Memory) ReplaceDocuments(_ context.Context, sourceID string, docs []datasource.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[sourceID]; !ok {
		return fmt.Errorf("data source %q: %w", sourceID, ErrNotFound)
	}
	stored := make([]datasource.Document, len(docs))
	for i, doc := range docs {
		doc.SourceID = sourceID
		doc.Raw = slices.Clone(doc.Raw)
		stored[i] = doc
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Name < stored[j].Name })
	m.documents[sourceID] = stored
	return nil
}

func (m *Memory) ListDocuments(_ context.Context, sourceID string) ([]datasource.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.documents[sourceID]), nil
}

func (m *Memory) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *Memory) CountActiveAdmins(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, u := range m.users {
		if u.IsActive && u.Role == auth.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
}

func (m *Memory) GetUserByID(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
}

func (m *Memory) CreateUser(_ context.Context, nu NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return User{}, fmt.Errorf("user %q: %w", nu.Email, ErrAlreadyExists)
		}
	}
	m.nextUser++
	u := User{
		ID:           m.nextUser,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		IsActive:     true,
		CreatedAt:    m.now(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *Memory) UpdateUserLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].LastLoginAt = at
			return nil
		}
	}
	return fmt.Errorf("user %d: %w", id, ErrNotFound)
}
