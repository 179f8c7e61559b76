package handler

import (
	"strings"

	"audittrail/internal/tenant/service"
	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
	strutil "audittrail/pkg/platform/strings"
	"audittrail/pkg/validation"
)

type CreateTenantRequest struct {
	Name string `json:"name" validate:"notblank,max=128"`
}

func (r *CreateTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

type RenameTenantRequest struct {
	Name string `json:"name" validate:"notblank,max=128"`
}

func (r *RenameTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

type CreateClientRequest struct {
	TenantID     string   `json:"tenant_id" validate:"required,uuid"`
	Name         string   `json:"name" validate:"notblank,max=128"`
	RedirectURIs []string `json:"redirect_uris" validate:"required,min=1"`
	Public       bool     `json:"public_client"`
}

// Normalize trims input and deduplicates redirect URIs.
func (r *CreateClientRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Name = strings.TrimSpace(r.Name)
	r.RedirectURIs = strutil.DedupeAndTrim(r.RedirectURIs)
}

func (r *CreateClientRequest) Validate() error {
	if err := validation.CheckSliceCount("redirect_uris", len(r.RedirectURIs), validation.MaxRedirectURIs); err != nil {
		return err
	}
	return validation.CheckEachStringLength("redirect_uris", r.RedirectURIs, validation.MaxRedirectURILength)
}

func (r *CreateClientRequest) ToCommand() (*service.CreateClientCommand, error) {
	tenantID, err := id.ParseTenantID(r.TenantID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id")
	}
	return &service.CreateClientCommand{
		TenantID:     tenantID,
		Name:         r.Name,
		RedirectURIs: r.RedirectURIs,
		Public:       r.Public,
	}, nil
}

// UpdateClientRequest is a partial update: absent fields are left unchanged.
type UpdateClientRequest struct {
	Name         *string   `json:"name,omitempty" validate:"omitempty,notblank,max=128"`
	RedirectURIs *[]string `json:"redirect_uris,omitempty"`
}

func (r *UpdateClientRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.RedirectURIs != nil {
		uris := strutil.DedupeAndTrim(*r.RedirectURIs)
		r.RedirectURIs = &uris
	}
}

func (r *UpdateClientRequest) Validate() error {
	if r.Name == nil && r.RedirectURIs == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if r.RedirectURIs == nil {
		return nil
	}
	if len(*r.RedirectURIs) == 0 {
		return dErrors.Validation(nil, dErrors.FieldError{Field: "redirect_uris", Message: "redirect_uris must not be empty"})
	}
	if err := validation.CheckSliceCount("redirect_uris", len(*r.RedirectURIs), validation.MaxRedirectURIs); err != nil {
		return err
	}
	return validation.CheckEachStringLength("redirect_uris", *r.RedirectURIs, validation.MaxRedirectURILength)
}

func (r *UpdateClientRequest) ToCommand() *service.UpdateClientCommand {
	cmd := &service.UpdateClientCommand{Name: r.Name}
	if r.RedirectURIs != nil {
		cmd.SetRedirectURIs(*r.RedirectURIs)
	}
	return cmd
}
