package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a pending export in the outbox table. It is written in the same
// transaction as the audit record it carries.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // auditable type, e.g. "Tenant"
	AggregateID   string // auditable id
	EventType     string
	Payload       []byte // JSON-encoded audit.Record
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil until published
}

// IsPending reports whether the entry still awaits publication.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

func NewEntry(aggregateType, aggregateID, eventType string, payload []byte) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
}
