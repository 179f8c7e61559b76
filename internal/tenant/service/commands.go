package service

import (
	"net/url"
	"strings"

	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
)

const maxNameLength = 128

// CreateClientCommand contains validated input for client creation.
type CreateClientCommand struct {
	TenantID     id.TenantID
	Name         string
	RedirectURIs []string
	Public       bool
}

func (c *CreateClientCommand) Validate() error {
	if err := requireTenantID(c.TenantID); err != nil {
		return err
	}
	if err := validateName(c.Name); err != nil {
		return err
	}
	if len(c.RedirectURIs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "redirect_uris are required")
	}
	return validateEachURI(c.RedirectURIs)
}

// UpdateClientCommand contains validated input for client updates.
// All fields are optional; nil means "don't change".
type UpdateClientCommand struct {
	Name         *string
	RedirectURIs []string

	hasRedirectURIs bool
}

func (c *UpdateClientCommand) SetRedirectURIs(uris []string) {
	c.RedirectURIs = uris
	c.hasRedirectURIs = true
}

func (c *UpdateClientCommand) HasRedirectURIs() bool { return c.hasRedirectURIs }

func (c *UpdateClientCommand) Validate() error {
	if c.Name != nil {
		if err := validateName(*c.Name); err != nil {
			return err
		}
	}
	if c.hasRedirectURIs {
		if len(c.RedirectURIs) == 0 {
			return dErrors.New(dErrors.CodeValidation, "redirect_uris cannot be empty")
		}
		if err := validateEachURI(c.RedirectURIs); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty returns true if the command contains no updates.
func (c *UpdateClientCommand) IsEmpty() bool {
	return c.Name == nil && !c.hasRedirectURIs
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(trimmed) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}
	return nil
}

func validateRedirectURI(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return dErrors.New(dErrors.CodeValidation, "invalid redirect_uri")
	}
	if parsed.Host == "" {
		return dErrors.New(dErrors.CodeValidation, "redirect_uri must include host")
	}
	if !isAllowedScheme(parsed.Scheme, parsed.Host) {
		return dErrors.New(dErrors.CodeValidation, "redirect_uri must be https or localhost for development")
	}
	return nil
}

// isAllowedScheme allows https everywhere and http only for localhost.
func isAllowedScheme(scheme, host string) bool {
	if scheme == "https" {
		return true
	}
	return scheme == "http" && isLocalhost(host)
}

// isLocalhost matches "localhost" or "localhost:<port>" exactly, so
// "localhost.attacker.com" is rejected.
func isLocalhost(host string) bool {
	return host == "localhost" || strings.HasPrefix(host, "localhost:")
}

func validateEachURI(uris []string) error {
	for _, uri := range uris {
		if err := validateRedirectURI(uri); err != nil {
			return err
		}
	}
	return nil
}
