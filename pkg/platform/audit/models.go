package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "audittrail/pkg/domain"
)

// ErrWriteFailed marks a failure to persist an audit record, as opposed to a
// failure of the entity mutation that triggered it.
var ErrWriteFailed = errors.New("audit record write failed")

// Action is the lifecycle event a record describes.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDestroy Action = "DESTROY"
)

// Actions lists every recordable action in lifecycle order.
var Actions = []Action{ActionCreate, ActionUpdate, ActionDestroy}

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDestroy:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }

// Auditable is implemented by entities whose mutations are recorded. The pair
// (AuditableType, AuditableID) is a polymorphic reference: records keep it
// after the entity itself is gone.
type Auditable interface {
	AuditableType() string
	AuditableID() string
}

// Record is an immutable account of one mutation. PrincipalID and PrincipalIP
// are nil when the actor or origin could not be determined.
type Record struct {
	ID            id.AuditRecordID `json:"id"`
	AuditableType string           `json:"auditable_type"`
	AuditableID   string           `json:"auditable_id"`
	PrincipalID   *string          `json:"principal_id"`
	PrincipalIP   *string          `json:"principal_ip"`
	Action        Action           `json:"action"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewRecord builds a record for entity. Empty principal values are stored as nil.
func NewRecord(entity Auditable, action Action, principalID, principalIP string, now time.Time) Record {
	return Record{
		ID:            id.AuditRecordID(uuid.New()),
		AuditableType: entity.AuditableType(),
		AuditableID:   entity.AuditableID(),
		PrincipalID:   optional(principalID),
		PrincipalIP:   optional(principalIP),
		Action:        action,
		CreatedAt:     now,
	}
}

// IsAnonymous reports whether the record carries no principal.
func (r Record) IsAnonymous() bool {
	return r.PrincipalID == nil
}

// Ref identifies an auditable entity by type and id without holding the entity.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) AuditableType() string { return r.Type }
func (r Ref) AuditableID() string   { return r.ID }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Policy decides what happens when a bound entity mutates with no principal.
type Policy string

const (
	// PolicySkip writes nothing and lets the mutation proceed.
	PolicySkip Policy = "skip"
	// PolicyFail rejects the mutation.
	PolicyFail Policy = "fail"
	// PolicyRecordAnonymous writes a record with no principal.
	PolicyRecordAnonymous Policy = "record_anonymous"
)

// DefaultPolicy is applied when nothing else is configured.
const DefaultPolicy = PolicySkip

// ParsePolicy accepts the configuration spelling of a policy. Empty input
// yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPolicy, nil
	case PolicySkip, PolicyFail, PolicyRecordAnonymous:
		return p, nil
	default:
		return "", fmt.Errorf("unknown no-principal policy %q", s)
	}
}
