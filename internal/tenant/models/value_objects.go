package models

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Auditable type names. They are persisted in audit_records.auditable_type
// and must not change once records exist.
const (
	AuditableTenant = "Tenant"
	AuditableClient = "Client"
)

const maxNameLength = 128
