package lifecycle

import (
	"context"
	"fmt"

	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/principal"
)

// Phase selects which saves a validation rule applies to.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseUpdate Phase = "update"
	// PhaseSave covers both creates and updates.
	PhaseSave Phase = "save"
)

// Field names reported when a principal requirement is not met.
const (
	FieldPrincipalID = "principal_id"
	FieldPrincipalIP = "principal_ip"
)

const (
	msgMissingPrincipalID = "Could not determine a principal ID"
	msgMissingPrincipalIP = "Could not determine a principal IP address"
)

// Rule requires a principal to be present when an entity is saved.
type Rule struct {
	RequireID bool
	RequireIP bool
	On        Phase
}

// DefaultRule requires a principal ID on every save.
func DefaultRule() Rule {
	return Rule{RequireID: true, On: PhaseSave}
}

func (r Rule) appliesTo(phase Phase) bool {
	return r.On == PhaseSave || r.On == phase
}

// ValidatePrincipal attaches rule to entityType. A type may carry several
// rules; all that apply to a save are checked.
func (r *Registry) ValidatePrincipal(entityType string, rule Rule) error {
	if entityType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "entity type cannot be empty")
	}
	if rule.On == "" {
		rule.On = PhaseSave
	}
	switch rule.On {
	case PhaseCreate, PhaseUpdate, PhaseSave:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown validation phase %q", rule.On))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[entityType] = append(r.rules[entityType], rule)
	return nil
}

// Validate checks every rule of entity's type that applies to phase against
// the principal in ctx. A failed rule yields a CodeValidation error naming
// each missing field and wrapping principal.ErrUnavailable.
func (r *Registry) Validate(ctx context.Context, entity audit.Auditable, phase Phase) error {
	r.mu.RLock()
	rules := r.rules[entity.AuditableType()]
	r.mu.RUnlock()
	if len(rules) == 0 {
		return nil
	}

	var needID, needIP bool
	for _, rule := range rules {
		if !rule.appliesTo(phase) {
			continue
		}
		needID = needID || rule.RequireID
		needIP = needIP || rule.RequireIP
	}
	if !needID && !needIP {
		return nil
	}

	current, _ := principal.Current(ctx)
	var fields []dErrors.FieldError
	if needID && !current.HasID() {
		fields = append(fields, dErrors.FieldError{Field: FieldPrincipalID, Message: msgMissingPrincipalID})
	}
	if needIP && !current.HasIP() {
		fields = append(fields, dErrors.FieldError{Field: FieldPrincipalIP, Message: msgMissingPrincipalIP})
	}
	if len(fields) == 0 {
		return nil
	}
	return dErrors.Validation(principal.ErrUnavailable, fields...)
}
