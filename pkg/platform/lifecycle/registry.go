// Package lifecycle binds entity types to the audit trail and to principal
// validation rules, and drives both from entity mutations.
//
// Bindings are explicit: an entity type is audited only after Bind, and is
// principal-validated only after ValidatePrincipal. The two are independent.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/principal"
)

var (
	// ErrDuplicateBinding is returned when an entity type is bound twice.
	ErrDuplicateBinding = fmt.Errorf("%w: auditable type already bound", sentinel.ErrConflict)
	// ErrNotBound is returned when reading the audit trail of an unbound type.
	ErrNotBound = fmt.Errorf("%w: auditable type not bound", sentinel.ErrNotFound)
)

// Recorder persists audit records. Satisfied by *audit.Recorder.
type Recorder interface {
	Record(ctx context.Context, entity audit.Auditable, action audit.Action, policy audit.Policy) error
	Trail(ctx context.Context, entity audit.Auditable) ([]audit.Record, error)
}

type binding struct {
	policy  audit.Policy
	actions map[audit.Action]bool
}

// BindOption configures a single binding.
type BindOption func(*binding)

// WithPolicy overrides the recorder's no-principal policy for this type.
func WithPolicy(p audit.Policy) BindOption {
	return func(b *binding) {
		b.policy = p
	}
}

// WithActions restricts recording to the given actions.
func WithActions(actions ...audit.Action) BindOption {
	return func(b *binding) {
		b.actions = make(map[audit.Action]bool, len(actions))
		for _, a := range actions {
			b.actions[a] = true
		}
	}
}

// Registry is the public record of which entity types are audited and which
// carry principal validation rules. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	recorder Recorder
	bindings map[string]binding
	rules    map[string][]Rule
	logger   *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(recorder Recorder, opts ...Option) *Registry {
	r := &Registry{
		recorder: recorder,
		bindings: make(map[string]binding),
		rules:    make(map[string][]Rule),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind makes mutations of entityType produce audit records and exposes the
// type's trail through AuditRecords. Binding the same type twice returns
// ErrDuplicateBinding and leaves the first binding in place.
func (r *Registry) Bind(entityType string, opts ...BindOption) error {
	if entityType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "auditable type cannot be empty")
	}

	b := binding{}
	WithActions(audit.Actions...)(&b)
	for _, opt := range opts {
		opt(&b)
	}
	for a := range b.actions {
		if !a.IsValid() {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown audit action %q", a))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[entityType]; exists {
		return fmt.Errorf("bind %s: %w", entityType, ErrDuplicateBinding)
	}
	r.bindings[entityType] = b

	if r.logger != nil {
		r.logger.Info("auditable type bound", "auditable_type", entityType, "policy", string(b.policy))
	}
	return nil
}

// IsBound reports whether entityType is audited.
func (r *Registry) IsBound(entityType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[entityType]
	return ok
}

// Bound lists the audited entity types in name order.
func (r *Registry) Bound() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.bindings))
	for t := range r.bindings {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch hands a completed mutation to the recorder exactly once. Unbound
// types and actions excluded from the binding are ignored.
func (r *Registry) Dispatch(ctx context.Context, entity audit.Auditable, action audit.Action) error {
	r.mu.RLock()
	b, ok := r.bindings[entity.AuditableType()]
	r.mu.RUnlock()
	if !ok || !b.actions[action] {
		return nil
	}
	return r.recorder.Record(ctx, entity, action, b.policy)
}

// AuditRecords returns the trail of entity, oldest first. The entity need not
// still exist.
func (r *Registry) AuditRecords(ctx context.Context, entity audit.Auditable) ([]audit.Record, error) {
	if !r.IsBound(entity.AuditableType()) {
		return nil, dErrors.Wrap(fmt.Errorf("%s: %w", entity.AuditableType(), ErrNotBound), dErrors.CodeNotFound, "auditable type is not audited")
	}
	return r.recorder.Trail(ctx, entity)
}

// Resolver returns the principal resolver for entityType.
func (r *Registry) Resolver(entityType string) Resolver {
	return Resolver{entityType: entityType}
}

// Resolver resolves the acting principal on behalf of one entity type.
type Resolver struct {
	entityType string
}

// Resolve returns the principal active in ctx, if it carries an identifier.
func (Resolver) Resolve(ctx context.Context) (principal.Principal, bool) {
	return principal.Resolve(ctx)
}

// EntityType names the type the resolver was obtained for.
func (res Resolver) EntityType() string {
	return res.entityType
}

// PrincipalOf resolves the principal acting on entity. It yields the same
// result as the type-level resolver for the same context.
func PrincipalOf(ctx context.Context, _ audit.Auditable) (principal.Principal, bool) {
	return principal.Resolve(ctx)
}
