package models

import (
	"time"

	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
)

type Tenant struct {
	ID        id.TenantID  `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (t *Tenant) AuditableType() string { return AuditableTenant }
func (t *Tenant) AuditableID() string   { return t.ID.String() }

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Rename changes the display name. Renaming to the current name is rejected
// so no-op updates do not reach the audit trail.
func (t *Tenant) Rename(name string, now time.Time) error {
	if err := validateName("tenant", name); err != nil {
		return err
	}
	if name == t.Name {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant already has that name")
	}
	t.Name = name
	t.UpdatedAt = now
	return nil
}

// Deactivate returns an error if the tenant is already inactive.
func (t *Tenant) Deactivate(now time.Time) error {
	if !t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	t.Status = TenantStatusInactive
	t.UpdatedAt = now
	return nil
}

// Reactivate returns an error if the tenant is already active.
func (t *Tenant) Reactivate(now time.Time) error {
	if t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	t.Status = TenantStatusActive
	t.UpdatedAt = now
	return nil
}

func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	if err := validateName("tenant", name); err != nil {
		return nil, err
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateName(kind, name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, kind+" name cannot be empty")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, kind+" name must be 128 characters or less")
	}
	return nil
}
