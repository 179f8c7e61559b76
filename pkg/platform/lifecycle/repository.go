package lifecycle

import (
	"context"
	"fmt"

	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/tx"
)

// Backend performs the raw persistence of one entity type. Implementations
// must join the transaction carried by ctx so a failed audit write can undo
// the mutation.
type Backend[T audit.Auditable] interface {
	Insert(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, entity T) error
}

// Locator reports whether entity is already persisted. Backends implement it
// to support Repository.Save.
type Locator[T audit.Auditable] interface {
	Exists(ctx context.Context, entity T) (bool, error)
}

// Repository runs entity mutations through validation and the audit trail.
// Each call is one transaction: validate, write, then record. The record is
// only produced after the write succeeds and is rolled back with it.
type Repository[T audit.Auditable] struct {
	backend  Backend[T]
	runner   tx.Runner
	registry *Registry
}

func NewRepository[T audit.Auditable](backend Backend[T], runner tx.Runner, registry *Registry) *Repository[T] {
	return &Repository[T]{
		backend:  backend,
		runner:   runner,
		registry: registry,
	}
}

func (r *Repository[T]) Create(ctx context.Context, entity T) error {
	return r.mutate(ctx, entity, PhaseCreate, audit.ActionCreate, r.backend.Insert)
}

func (r *Repository[T]) Update(ctx context.Context, entity T) error {
	return r.mutate(ctx, entity, PhaseUpdate, audit.ActionUpdate, r.backend.Update)
}

// Save inserts entity when it is not stored yet and updates it otherwise. The
// lookup runs inside the transaction, so the record is CREATE or UPDATE to
// match the write that happened. The backend must implement Locator.
func (r *Repository[T]) Save(ctx context.Context, entity T) error {
	loc, ok := any(r.backend).(Locator[T])
	if !ok {
		return fmt.Errorf("save %s: backend cannot locate existing rows", entity.AuditableType())
	}
	return r.runner.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := loc.Exists(ctx, entity)
		if err != nil {
			return err
		}
		if exists {
			return r.apply(ctx, entity, PhaseUpdate, audit.ActionUpdate, r.backend.Update)
		}
		return r.apply(ctx, entity, PhaseCreate, audit.ActionCreate, r.backend.Insert)
	})
}

// Destroy deletes entity. Principal validation rules only guard saves.
func (r *Repository[T]) Destroy(ctx context.Context, entity T) error {
	return r.mutate(ctx, entity, "", audit.ActionDestroy, r.backend.Delete)
}

func (r *Repository[T]) mutate(ctx context.Context, entity T, phase Phase, action audit.Action, write func(context.Context, T) error) error {
	return r.runner.RunInTx(ctx, func(ctx context.Context) error {
		return r.apply(ctx, entity, phase, action, write)
	})
}

func (r *Repository[T]) apply(ctx context.Context, entity T, phase Phase, action audit.Action, write func(context.Context, T) error) error {
	if phase != "" {
		if err := r.registry.Validate(ctx, entity, phase); err != nil {
			return err
		}
	}
	if err := write(ctx, entity); err != nil {
		return err
	}
	return r.registry.Dispatch(ctx, entity, action)
}
