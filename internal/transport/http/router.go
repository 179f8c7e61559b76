package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"audittrail/pkg/platform/middleware/auth"
	"audittrail/pkg/platform/middleware/metadata"
	principalmw "audittrail/pkg/platform/middleware/principal"
	"audittrail/pkg/platform/middleware/request"
	"audittrail/pkg/platform/middleware/requesttime"
	"audittrail/pkg/validation"
)

// RouteRegistrar mounts a module's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Deps are the pieces the router is assembled from.
type Deps struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	TrustedProxies []netip.Prefix
	// Latency may be nil to skip request metrics.
	Latency *request.Metrics

	// Validator authenticates the admin API.
	Validator auth.JWTValidator
	// Accessor reads the principal ID from an authenticated request. Nil
	// means the authenticated user.
	Accessor principalmw.Accessor

	// Public routes skip authentication (health probes).
	Public []RouteRegistrar
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Admin routes require a bearer token and carry a principal.
	Admin []RouteRegistrar
}

// NewRouter wires all endpoints with middleware. Client metadata is captured
// before authentication so the principal middleware sees both the user and the
// originating address.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: d.TrustedProxies}).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.Latency, routePattern))
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}
	r.Use(request.BodyLimit(validation.MaxBodySize))
	r.Use(request.ContentTypeJSON)

	for _, reg := range d.Public {
		reg.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		r.Use(principalmw.Install(d.Accessor))
		for _, reg := range d.Admin {
			reg.Register(r)
		}
	})

	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
