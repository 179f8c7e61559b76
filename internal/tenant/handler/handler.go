package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithandler "audittrail/internal/audit/handler"
	"audittrail/internal/tenant/models"
	"audittrail/internal/tenant/service"
	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/httputil"
	"audittrail/pkg/requestcontext"
)

// TenantService is the tenant half of the admin API.
type TenantService interface {
	CreateTenant(ctx context.Context, name string) (*models.Tenant, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	RenameTenant(ctx context.Context, tenantID id.TenantID, name string) (*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, tenantID id.TenantID) error
	AuditTrail(ctx context.Context, tenantID id.TenantID) ([]audit.Record, error)
}

// ClientService is the client half of the admin API.
type ClientService interface {
	CreateClient(ctx context.Context, cmd *service.CreateClientCommand) (*models.Client, string, error)
	GetClient(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	ListClients(ctx context.Context, tenantID id.TenantID) ([]*models.Client, error)
	UpdateClient(ctx context.Context, clientID id.ClientID, cmd *service.UpdateClientCommand) (*models.Client, error)
	RotateSecret(ctx context.Context, clientID id.ClientID) (*models.Client, string, error)
	DeactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	ReactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	DeleteClient(ctx context.Context, clientID id.ClientID) error
	AuditTrail(ctx context.Context, clientID id.ClientID) ([]audit.Record, error)
}

type Handler struct {
	tenants TenantService
	clients ClientService
	logger  *slog.Logger
}

func New(tenants TenantService, clients ClientService, logger *slog.Logger) *Handler {
	return &Handler{tenants: tenants, clients: clients, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tenants", h.HandleCreateTenant)
	r.Get("/admin/tenants", h.HandleListTenants)
	r.Get("/admin/tenants/{id}", h.HandleGetTenant)
	r.Patch("/admin/tenants/{id}", h.HandleRenameTenant)
	r.Delete("/admin/tenants/{id}", h.HandleDeleteTenant)
	r.Post("/admin/tenants/{id}/deactivate", h.tenantTransition("deactivate tenant", h.tenants.DeactivateTenant))
	r.Post("/admin/tenants/{id}/reactivate", h.tenantTransition("reactivate tenant", h.tenants.ReactivateTenant))
	r.Get("/admin/tenants/{id}/clients", h.HandleListClients)
	r.Get("/admin/tenants/{id}/audit-records", h.HandleTenantAuditRecords)

	r.Post("/admin/clients", h.HandleCreateClient)
	r.Get("/admin/clients/{id}", h.HandleGetClient)
	r.Put("/admin/clients/{id}", h.HandleUpdateClient)
	r.Delete("/admin/clients/{id}", h.HandleDeleteClient)
	r.Post("/admin/clients/{id}/deactivate", h.clientTransition("deactivate client", h.clients.DeactivateClient))
	r.Post("/admin/clients/{id}/reactivate", h.clientTransition("reactivate client", h.clients.ReactivateClient))
	r.Post("/admin/clients/{id}/rotate-secret", h.HandleRotateClientSecret)
	r.Get("/admin/clients/{id}/audit-records", h.HandleClientAuditRecords)
}

func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.tenants.CreateTenant(ctx, req.Name)
	if err != nil {
		h.fail(ctx, w, "create tenant", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *Handler) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenants, err := h.tenants.ListTenants(ctx)
	if err != nil {
		h.fail(ctx, w, "list tenants", err)
		return
	}

	res := &TenantListResponse{Tenants: make([]*TenantResponse, 0, len(tenants))}
	for _, t := range tenants {
		res.Tenants = append(res.Tenants, toTenantResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		h.fail(ctx, w, "get tenant", err, "tenant_id", tenantID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) HandleRenameTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RenameTenantRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	tenant, err := h.tenants.RenameTenant(ctx, tenantID, req.Name)
	if err != nil {
		h.fail(ctx, w, "rename tenant", err, "tenant_id", tenantID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleDeleteTenant removes the tenant and its clients. Each removal is
// recorded as DESTROY.
func (h *Handler) HandleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	if err := h.tenants.DeleteTenant(ctx, tenantID); err != nil {
		h.fail(ctx, w, "delete tenant", err, "tenant_id", tenantID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantTransition(op string, apply func(context.Context, id.TenantID) (*models.Tenant, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenantID, ok := tenantIDParam(w, r)
		if !ok {
			return
		}

		tenant, err := apply(ctx, tenantID)
		if err != nil {
			h.fail(ctx, w, op, err, "tenant_id", tenantID)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
	}
}

func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	clients, err := h.clients.ListClients(ctx, tenantID)
	if err != nil {
		h.fail(ctx, w, "list clients", err, "tenant_id", tenantID)
		return
	}

	res := &ClientListResponse{Clients: make([]*ClientResponse, 0, len(clients))}
	for _, c := range clients {
		res.Clients = append(res.Clients, toClientResponse(c, ""))
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleTenantAuditRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	records, err := h.tenants.AuditTrail(ctx, tenantID)
	if err != nil {
		h.fail(ctx, w, "tenant audit records", err, "tenant_id", tenantID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &audithandler.RecordListResponse{Records: audithandler.ToRecordResponses(records)})
}

// HandleCreateClient registers a client under a tenant. The plaintext secret
// of a confidential client is returned once.
func (h *Handler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	client, secret, err := h.clients.CreateClient(ctx, cmd)
	if err != nil {
		h.fail(ctx, w, "create client", err, "tenant_id", cmd.TenantID)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toClientResponse(client, secret))
}

func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	client, err := h.clients.GetClient(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "get client", err, "client_id", clientID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toClientResponse(client, ""))
}

func (h *Handler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateClientRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	client, err := h.clients.UpdateClient(ctx, clientID, req.ToCommand())
	if err != nil {
		h.fail(ctx, w, "update client", err, "client_id", clientID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toClientResponse(client, ""))
}

func (h *Handler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	if err := h.clients.DeleteClient(ctx, clientID); err != nil {
		h.fail(ctx, w, "delete client", err, "client_id", clientID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clientTransition(op string, apply func(context.Context, id.ClientID) (*models.Client, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientID, ok := clientIDParam(w, r)
		if !ok {
			return
		}

		client, err := apply(ctx, clientID)
		if err != nil {
			h.fail(ctx, w, op, err, "client_id", clientID)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, toClientResponse(client, ""))
	}
}

// HandleRotateClientSecret returns the new secret; it is not retrievable later.
func (h *Handler) HandleRotateClientSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	client, secret, err := h.clients.RotateSecret(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "rotate client secret", err, "client_id", clientID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toClientResponse(client, secret))
}

func (h *Handler) HandleClientAuditRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	records, err := h.clients.AuditTrail(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "client audit records", err, "client_id", clientID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &audithandler.RecordListResponse{Records: audithandler.ToRecordResponses(records)})
}

// fail logs server-side failures at error and client mistakes at warn, then
// writes the mapped response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "request_id", requestcontext.RequestID(ctx))
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, op+" failed", attrs...)
	}
	httputil.WriteError(w, err)
}

func tenantIDParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

func clientIDParam(w http.ResponseWriter, r *http.Request) (id.ClientID, bool) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client id"))
		return id.ClientID{}, false
	}
	return clientID, true
}
