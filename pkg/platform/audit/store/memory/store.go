package memory

import (
	"context"
	"sync"

	id "audittrail/pkg/domain"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/tx"
)

// InMemoryStore keeps records in append order. Appends made inside an
// in-memory transaction are withdrawn if that transaction rolls back.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, record audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	tx.OnRollback(ctx, func() { s.remove(record.ID) })
	return nil
}

func (s *InMemoryStore) ListByAuditable(_ context.Context, ref audit.Ref) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for _, r := range s.records {
		if r.AuditableType == ref.Type && r.AuditableID == ref.ID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]audit.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *InMemoryStore) remove(recordID id.AuditRecordID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].ID == recordID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}
