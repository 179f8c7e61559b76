package tenant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
)

// InMemory stores tenants in memory. Writes made inside an in-memory
// transaction are undone if it rolls back.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]models.Tenant
	nameIdx map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]models.Tenant),
		nameIdx: make(map[string]id.TenantID),
	}
}

// Insert adds t if its name is not already taken (case-insensitive).
func (s *InMemory) Insert(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(t.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("tenant name must be unique: %w", sentinel.ErrConflict)
	}
	s.tenants[t.ID] = *t
	s.nameIdx[lower] = t.ID
	tx.OnRollback(ctx, func() { s.restore(t.ID, nil) })
	return nil
}

func (s *InMemory) Update(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tenants[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	lower := strings.ToLower(t.Name)
	if owner, exists := s.nameIdx[lower]; exists && owner != t.ID {
		return fmt.Errorf("tenant name must be unique: %w", sentinel.ErrConflict)
	}
	delete(s.nameIdx, strings.ToLower(prev.Name))
	s.tenants[t.ID] = *t
	s.nameIdx[lower] = t.ID
	tx.OnRollback(ctx, func() { s.restore(t.ID, &prev) })
	return nil
}

func (s *InMemory) Delete(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tenants[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tenants, t.ID)
	delete(s.nameIdx, strings.ToLower(prev.Name))
	tx.OnRollback(ctx, func() { s.restore(t.ID, &prev) })
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

// LockByID is FindByID; the in-memory runner already serializes transactions.
func (s *InMemory) LockByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.FindByID(ctx, tenantID)
}

// FindByName retrieves a tenant by name (case-insensitive).
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tenantID, ok := s.nameIdx[strings.ToLower(name)]; ok {
		t := s.tenants[tenantID]
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

// List returns all tenants ordered by creation time.
func (s *InMemory) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// restore puts back prev, or removes the tenant entirely when prev is nil.
func (s *InMemory) restore(tenantID id.TenantID, prev *models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tenants[tenantID]; ok {
		delete(s.nameIdx, strings.ToLower(cur.Name))
		delete(s.tenants, tenantID)
	}
	if prev != nil {
		s.tenants[tenantID] = *prev
		s.nameIdx[strings.ToLower(prev.Name)] = tenantID
	}
}
