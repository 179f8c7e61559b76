package app

import (
	"net/http"

	audithandler "audittrail/internal/audit/handler"
	jwttoken "audittrail/internal/jwt_token"
	"audittrail/internal/platform/health"
	"audittrail/internal/platform/metrics"
	tenanthandler "audittrail/internal/tenant/handler"
	httptransport "audittrail/internal/transport/http"
	"audittrail/pkg/platform/middleware/metadata"
	principalmw "audittrail/pkg/platform/middleware/principal"
	"audittrail/pkg/platform/middleware/request"
)

// Handler assembles the HTTP API: health probes, metrics, and the
// authenticated admin and audit routes.
func (a *App) Handler() (http.Handler, error) {
	cfg := a.Config
	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		return nil, err
	}
	accessor, err := principalmw.ParseAccessor(cfg.PrincipalUserAccessor)
	if err != nil {
		return nil, err
	}

	probes := health.New(cfg.Environment)
	if a.Pool != nil {
		probes.RegisterCheck("database", a.Pool.Health)
	}
	if a.Exporter != nil {
		probes.RegisterCheck("kafka", a.KafkaHealth)
	}

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	return httptransport.NewRouter(httptransport.Deps{
		Logger:         a.Logger,
		RequestTimeout: cfg.RequestTimeout,
		TrustedProxies: proxies,
		Latency:        request.NewMetrics(a.Metrics),
		Validator:      jwttoken.NewJWTServiceAdapter(jwt),
		Accessor:       accessor,
		Public:         []httptransport.RouteRegistrar{probes},
		Metrics:        metrics.Handler(a.Metrics),
		Admin: []httptransport.RouteRegistrar{
			tenanthandler.New(a.Tenants, a.Clients, a.Logger),
			audithandler.New(a.Registry, a.Audit, a.Logger),
		},
	}), nil
}
