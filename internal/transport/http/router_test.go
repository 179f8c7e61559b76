package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	audithandler "audittrail/internal/audit/handler"
	jwttoken "audittrail/internal/jwt_token"
	"audittrail/internal/platform/health"
	"audittrail/internal/platform/metrics"
	tenantmetrics "audittrail/internal/tenant/metrics"
	tenanthandler "audittrail/internal/tenant/handler"
	"audittrail/internal/tenant/service"
	clientstore "audittrail/internal/tenant/store/client"
	tenantstore "audittrail/internal/tenant/store/tenant"
	id "audittrail/pkg/domain"
	audit "audittrail/pkg/platform/audit"
	auditmemory "audittrail/pkg/platform/audit/store/memory"
	"audittrail/pkg/platform/lifecycle"
	"audittrail/pkg/platform/middleware/request"
	"audittrail/pkg/platform/tx"
)

type RouterSuite struct {
	suite.Suite
	jwt      *jwttoken.JWTService
	registry *prometheus.Registry
	router   http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.registry = metrics.NewRegistry()
	s.jwt = jwttoken.NewJWTService("router-test-key", "audittrail", "audittrail-admin", time.Minute)

	auditStore := auditmemory.NewInMemoryStore()
	lc := lifecycle.NewRegistry(audit.NewRecorder(auditStore, audit.WithPolicy(audit.PolicyFail)))
	s.Require().NoError(service.RegisterAuditing(lc))
	tenants := tenantstore.NewInMemory()
	clients := clientstore.NewInMemory()
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(tenantmetrics.New(s.registry)),
		service.WithRunner(tx.NewMemory()),
	}

	s.router = NewRouter(Deps{
		Logger:         logger,
		RequestTimeout: 5 * time.Second,
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
		Latency:        request.NewMetrics(s.registry),
		Validator:      jwttoken.NewJWTServiceAdapter(s.jwt),
		Public:         []RouteRegistrar{health.New("test")},
		Metrics:        metrics.Handler(s.registry),
		Admin: []RouteRegistrar{
			tenanthandler.New(
				service.NewTenantService(tenants, clients, lc, opts...),
				service.NewClientService(clients, tenants, lc, opts...),
				logger,
			),
			audithandler.New(lc, auditStore, logger),
		},
	})
}

func (s *RouterSuite) token(user id.UserID) string {
	tok, err := s.jwt.GenerateAccessToken(context.Background(), user)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) serve(method, path, body, bearer string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.7:41000"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) TestHealthIsPublic() {
	rec := s.serve(http.MethodGet, "/health/live", "", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestMetricsIsPublic() {
	rec := s.serve(http.MethodGet, "/metrics", "", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "go_goroutines")
}

func (s *RouterSuite) TestAdminRequiresToken() {
	rec := s.serve(http.MethodGet, "/admin/tenants", "", "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.serve(http.MethodGet, "/audit-records", "", "not-a-token")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestAuthenticatedUserBecomesPrincipal() {
	user := id.UserID(uuid.New())
	bearer := s.token(user)

	rec := s.serve(http.MethodPost, "/admin/tenants", `{"name":"acme"}`, bearer)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var tenant tenanthandler.TenantResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tenant))

	rec = s.serve(http.MethodGet, "/audit-records?auditable_type=Tenant&auditable_id="+tenant.ID, "", bearer)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var list audithandler.RecordListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Records, 1)

	got := list.Records[0]
	s.Equal("CREATE", got.Action)
	s.Require().NotNil(got.PrincipalID)
	s.Equal(user.String(), *got.PrincipalID)
	s.Require().NotNil(got.PrincipalIP)
	s.Equal("198.51.100.23", *got.PrincipalIP)
}

func (s *RouterSuite) TestLatencyUsesRoutePattern() {
	bearer := s.token(id.UserID(uuid.New()))
	s.serve(http.MethodGet, "/admin/tenants/"+uuid.NewString(), "", bearer)

	count, err := promtestutil.GatherAndCount(s.registry, "audittrail_http_request_duration_seconds")
	s.Require().NoError(err)
	s.Equal(1, count)

	rec := s.serve(http.MethodGet, "/metrics", "", "")
	s.Contains(rec.Body.String(), `endpoint="/admin/tenants/{id}"`)
}
