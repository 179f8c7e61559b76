package client

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
)

// InMemory stores clients in memory.
// Maintains a secondary index on the public client_id.
type InMemory struct {
	mu         sync.RWMutex
	clients    map[id.ClientID]models.Client
	byPublicID map[string]id.ClientID
}

func NewInMemory() *InMemory {
	return &InMemory{
		clients:    make(map[id.ClientID]models.Client),
		byPublicID: make(map[string]id.ClientID),
	}
}

func (s *InMemory) Insert(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c.ID]; exists {
		return fmt.Errorf("client already exists: %w", sentinel.ErrConflict)
	}
	if _, exists := s.byPublicID[c.PublicID]; exists {
		return fmt.Errorf("client_id must be unique: %w", sentinel.ErrConflict)
	}
	s.put(*c)
	tx.OnRollback(ctx, func() { s.restore(c.ID, nil) })
	return nil
}

func (s *InMemory) Update(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.clients[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byPublicID, prev.PublicID)
	s.put(*c)
	tx.OnRollback(ctx, func() { s.restore(c.ID, &prev) })
	return nil
}

func (s *InMemory) Delete(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.clients[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.clients, c.ID)
	delete(s.byPublicID, prev.PublicID)
	tx.OnRollback(ctx, func() { s.restore(c.ID, &prev) })
	return nil
}

// FindByID retrieves a client by its internal UUID.
func (s *InMemory) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[clientID]; ok {
		return clone(c), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByTenantAndID retrieves a client scoped to a specific tenant.
// Returns sentinel.ErrNotFound if the client belongs to a different tenant.
func (s *InMemory) FindByTenantAndID(_ context.Context, tenantID id.TenantID, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[clientID]; ok && c.TenantID == tenantID {
		return clone(c), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByPublicID(_ context.Context, publicID string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if clientID, ok := s.byPublicID[publicID]; ok {
		return clone(s.clients[clientID]), nil
	}
	return nil, sentinel.ErrNotFound
}

// ListByTenant returns a tenant's clients ordered by creation time.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Client
	for _, c := range s.clients {
		if c.TenantID == tenantID {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) put(c models.Client) {
	c.RedirectURIs = slices.Clone(c.RedirectURIs)
	s.clients[c.ID] = c
	s.byPublicID[c.PublicID] = c.ID
}

func (s *InMemory) restore(clientID id.ClientID, prev *models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.clients[clientID]; ok {
		delete(s.byPublicID, cur.PublicID)
		delete(s.clients, clientID)
	}
	if prev != nil {
		s.put(*prev)
	}
}

func clone(c models.Client) *models.Client {
	c.RedirectURIs = slices.Clone(c.RedirectURIs)
	return &c
}
