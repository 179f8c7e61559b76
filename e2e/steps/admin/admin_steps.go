package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	ActorID(name string) (string, error)

	GetTenantID() string
	SetTenantID(tenantID string)
	GetClientID() string
	SetClientID(clientID string)
}

// RegisterSteps registers admin-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	// Tenant steps
	ctx.Step(`^I create a tenant with name "([^"]*)"$`, steps.createTenant)
	ctx.Step(`^I rename the tenant to "([^"]*)"$`, steps.renameTenant)
	ctx.Step(`^I deactivate the tenant$`, steps.deactivateTenant)
	ctx.Step(`^I reactivate the tenant$`, steps.reactivateTenant)
	ctx.Step(`^I delete the tenant$`, steps.deleteTenant)
	ctx.Step(`^the tenant should no longer exist$`, steps.tenantShouldNotExist)

	// Client steps
	ctx.Step(`^I create a client "([^"]*)" under the tenant$`, steps.createClient)
	ctx.Step(`^I create a public client "([^"]*)" under the tenant$`, steps.createPublicClient)
	ctx.Step(`^I update the client name to "([^"]*)"$`, steps.updateClientName)
	ctx.Step(`^I rotate the client secret$`, steps.rotateClientSecret)
	ctx.Step(`^I delete the client$`, steps.deleteClient)

	// Audit trail steps
	ctx.Step(`^the tenant audit trail should be:$`, steps.tenantTrailShouldBe)
	ctx.Step(`^the client audit trail should be:$`, steps.clientTrailShouldBe)
	ctx.Step(`^every tenant audit record should carry a principal IP$`, steps.tenantTrailHasIPs)
}

type adminSteps struct {
	tc TestContext
}

type record struct {
	AuditableType string  `json:"auditable_type"`
	AuditableID   string  `json:"auditable_id"`
	PrincipalID   *string `json:"principal_id"`
	PrincipalIP   *string `json:"principal_ip"`
	Action        string  `json:"action"`
}

// createTenant suffixes the name since tenant names are unique and scenarios
// share one server.
func (s *adminSteps) createTenant(ctx context.Context, name string) error {
	body := map[string]any{"name": name + " " + uuid.NewString()[:8]}
	if err := s.tc.Do(http.MethodPost, "/admin/tenants", body); err != nil {
		return err
	}
	return s.saveID(http.StatusCreated, s.tc.SetTenantID)
}

func (s *adminSteps) renameTenant(ctx context.Context, name string) error {
	return s.tc.Do(http.MethodPatch, "/admin/tenants/"+s.tc.GetTenantID(), map[string]any{"name": name})
}

func (s *adminSteps) deactivateTenant(ctx context.Context) error {
	return s.tc.Do(http.MethodPost, "/admin/tenants/"+s.tc.GetTenantID()+"/deactivate", nil)
}

func (s *adminSteps) reactivateTenant(ctx context.Context) error {
	return s.tc.Do(http.MethodPost, "/admin/tenants/"+s.tc.GetTenantID()+"/reactivate", nil)
}

func (s *adminSteps) deleteTenant(ctx context.Context) error {
	return s.tc.Do(http.MethodDelete, "/admin/tenants/"+s.tc.GetTenantID(), nil)
}

func (s *adminSteps) tenantShouldNotExist(ctx context.Context) error {
	if err := s.tc.Do(http.MethodGet, "/admin/tenants/"+s.tc.GetTenantID(), nil); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusNotFound {
		return fmt.Errorf("expected status 404 but got %d", status)
	}
	return nil
}

func (s *adminSteps) createClient(ctx context.Context, name string) error {
	return s.createClientWith(name, false)
}

func (s *adminSteps) createPublicClient(ctx context.Context, name string) error {
	return s.createClientWith(name, true)
}

func (s *adminSteps) createClientWith(name string, public bool) error {
	body := map[string]any{
		"tenant_id":     s.tc.GetTenantID(),
		"name":          name,
		"redirect_uris": []string{"https://app.example.com/callback"},
		"public_client": public,
	}
	if err := s.tc.Do(http.MethodPost, "/admin/clients", body); err != nil {
		return err
	}
	return s.saveID(http.StatusCreated, s.tc.SetClientID)
}

func (s *adminSteps) updateClientName(ctx context.Context, name string) error {
	return s.tc.Do(http.MethodPut, "/admin/clients/"+s.tc.GetClientID(), map[string]any{"name": name})
}

func (s *adminSteps) rotateClientSecret(ctx context.Context) error {
	return s.tc.Do(http.MethodPost, "/admin/clients/"+s.tc.GetClientID()+"/rotate-secret", nil)
}

func (s *adminSteps) deleteClient(ctx context.Context) error {
	return s.tc.Do(http.MethodDelete, "/admin/clients/"+s.tc.GetClientID(), nil)
}

func (s *adminSteps) saveID(want int, set func(string)) error {
	if status := s.tc.GetLastResponseStatus(); status != want {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", want, status, string(s.tc.GetLastResponseBody()))
	}
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	set(fmt.Sprint(v))
	return nil
}

// trail reads through the generic endpoint so records for deleted entities
// stay reachable.
func (s *adminSteps) trail(auditableType, auditableID string) ([]record, error) {
	q := url.Values{"auditable_type": {auditableType}, "auditable_id": {auditableID}}
	if err := s.tc.Do(http.MethodGet, "/audit-records?"+q.Encode(), nil); err != nil {
		return nil, err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK {
		return nil, fmt.Errorf("audit trail request failed: status %d\nResponse: %s", status, string(s.tc.GetLastResponseBody()))
	}
	var body struct {
		Records []record `json:"records"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse audit trail: %w", err)
	}
	return body.Records, nil
}

func (s *adminSteps) tenantTrailShouldBe(ctx context.Context, table *godog.Table) error {
	return s.trailShouldBe("Tenant", s.tc.GetTenantID(), table)
}

func (s *adminSteps) clientTrailShouldBe(ctx context.Context, table *godog.Table) error {
	return s.trailShouldBe("Client", s.tc.GetClientID(), table)
}

// trailShouldBe compares against a table with "action" and "principal"
// columns. A principal of "-" means the record has none.
func (s *adminSteps) trailShouldBe(auditableType, auditableID string, table *godog.Table) error {
	records, err := s.trail(auditableType, auditableID)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("expected table needs a header row")
	}

	header := table.Rows[0].Cells
	col := make(map[string]int, len(header))
	for i, c := range header {
		col[strings.TrimSpace(c.Value)] = i
	}
	actionCol, ok := col["action"]
	if !ok {
		return fmt.Errorf("expected table needs an action column")
	}
	principalCol, hasPrincipal := col["principal"]

	rows := table.Rows[1:]
	if len(records) != len(rows) {
		return fmt.Errorf("expected %d audit records but got %d\nResponse: %s",
			len(rows), len(records), string(s.tc.GetLastResponseBody()))
	}
	for i, row := range rows {
		got := records[i]
		if got.AuditableType != auditableType || got.AuditableID != auditableID {
			return fmt.Errorf("record %d: belongs to %s %s", i, got.AuditableType, got.AuditableID)
		}
		if want := row.Cells[actionCol].Value; got.Action != want {
			return fmt.Errorf("record %d: expected action %s but got %s", i, want, got.Action)
		}
		if !hasPrincipal {
			continue
		}
		if err := s.principalMatches(i, row.Cells[principalCol].Value, got.PrincipalID); err != nil {
			return err
		}
	}
	return nil
}

func (s *adminSteps) principalMatches(i int, actor string, got *string) error {
	if actor == "-" {
		if got != nil {
			return fmt.Errorf("record %d: expected no principal but got %s", i, *got)
		}
		return nil
	}
	want, err := s.tc.ActorID(actor)
	if err != nil {
		return err
	}
	if got == nil || *got != want {
		return fmt.Errorf("record %d: expected principal %s (%s) but got %v", i, actor, want, got)
	}
	return nil
}

func (s *adminSteps) tenantTrailHasIPs(ctx context.Context) error {
	records, err := s.trail("Tenant", s.tc.GetTenantID())
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.PrincipalIP == nil || *r.PrincipalIP == "" {
			return fmt.Errorf("record %d: missing principal IP", i)
		}
	}
	return nil
}
