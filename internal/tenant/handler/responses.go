package handler

import (
	"time"

	"audittrail/internal/tenant/models"
)

type TenantResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    models.TenantStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type TenantListResponse struct {
	Tenants []*TenantResponse `json:"tenants"`
}

type ClientResponse struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	Name         string              `json:"name"`
	PublicID     string              `json:"client_id"`
	ClientSecret string              `json:"client_secret,omitempty"` // only on create and rotate
	RedirectURIs []string            `json:"redirect_uris"`
	Status       models.ClientStatus `json:"status"`
	PublicClient bool                `json:"public_client"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type ClientListResponse struct {
	Clients []*ClientResponse `json:"clients"`
}

func toTenantResponse(t *models.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toClientResponse(client *models.Client, secret string) *ClientResponse {
	return &ClientResponse{
		ID:           client.ID.String(),
		TenantID:     client.TenantID.String(),
		Name:         client.Name,
		PublicID:     client.PublicID,
		ClientSecret: secret,
		RedirectURIs: client.RedirectURIs,
		Status:       client.Status,
		PublicClient: !client.IsConfidential(),
		CreatedAt:    client.CreatedAt,
		UpdatedAt:    client.UpdatedAt,
	}
}
