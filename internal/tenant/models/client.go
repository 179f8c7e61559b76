package models

import (
	"time"

	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
)

// Client is an application registered under a tenant. Every change to it is
// audited, and creating one additionally requires a known actor and origin.
type Client struct {
	ID           id.ClientID  `json:"id"`
	TenantID     id.TenantID  `json:"tenant_id"`
	Name         string       `json:"name"`
	PublicID     string       `json:"client_id"`
	SecretHash   string       `json:"-"`
	RedirectURIs []string     `json:"redirect_uris"`
	Status       ClientStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (c *Client) AuditableType() string { return AuditableClient }
func (c *Client) AuditableID() string   { return c.ID.String() }

func NewClient(clientID id.ClientID, tenantID id.TenantID, name, publicID, secretHash string, redirectURIs []string, now time.Time) (*Client, error) {
	if err := validateName("client", name); err != nil {
		return nil, err
	}
	if publicID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client_id cannot be empty")
	}
	if len(redirectURIs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "redirect_uris cannot be empty")
	}
	return &Client{
		ID:           clientID,
		TenantID:     tenantID,
		Name:         name,
		PublicID:     publicID,
		SecretHash:   secretHash,
		RedirectURIs: redirectURIs,
		Status:       ClientStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// IsConfidential reports whether the client authenticates with a secret.
func (c *Client) IsConfidential() bool {
	return c.SecretHash != ""
}

func (c *Client) Rename(name string, now time.Time) error {
	if err := validateName("client", name); err != nil {
		return err
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}

func (c *Client) SetRedirectURIs(uris []string, now time.Time) error {
	if len(uris) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "redirect_uris cannot be empty")
	}
	c.RedirectURIs = uris
	c.UpdatedAt = now
	return nil
}

// RotateSecret replaces the secret hash. Only confidential clients carry one.
func (c *Client) RotateSecret(secretHash string, now time.Time) error {
	if !c.IsConfidential() {
		return dErrors.New(dErrors.CodeInvariantViolation, "public clients have no secret to rotate")
	}
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot rotate the secret of an inactive client")
	}
	c.SecretHash = secretHash
	c.UpdatedAt = now
	return nil
}

func (c *Client) Deactivate(now time.Time) error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "client is already inactive")
	}
	c.Status = ClientStatusInactive
	c.UpdatedAt = now
	return nil
}

func (c *Client) Reactivate(now time.Time) error {
	if c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "client is already active")
	}
	c.Status = ClientStatusActive
	c.UpdatedAt = now
	return nil
}
