// Package audit hosts the stable message shape published to the audit export
// topic. Consumers decode against it instead of the internal record type, so
// it is versioned independently from storage.
package audit

import "time"

// ContractVersion identifies the schema of ExportedRecord. Bump on breaking
// changes; consumers can pin or roll forward.
const ContractVersion = "v1"

// ExportedRecord is one audit record as published to Kafka. The message key is
// "<auditable_type>:<auditable_id>".
type ExportedRecord struct {
	Version       string    `json:"version"`
	ID            string    `json:"id"`
	AuditableType string    `json:"auditable_type"`
	AuditableID   string    `json:"auditable_id"`
	PrincipalID   *string   `json:"principal_id"`
	PrincipalIP   *string   `json:"principal_ip"`
	Action        string    `json:"action"`
	CreatedAt     time.Time `json:"created_at"`
}
