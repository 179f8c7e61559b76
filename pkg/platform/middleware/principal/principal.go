// Package principal installs the acting principal for each HTTP request so
// audited mutations made while serving it are attributed to the caller.
package principal

import (
	"fmt"
	"net/http"
	"net/textproto"
	"strings"

	"audittrail/pkg/principal"
	"audittrail/pkg/requestcontext"
)

// MaxHeaderValueLength caps principal IDs taken from a request header.
const MaxHeaderValueLength = 256

const (
	// AccessorAuthUser reads the user authenticated by the auth middleware.
	AccessorAuthUser = "auth_user"
	// AccessorHeaderPrefix selects a request header, e.g. "header:X-Actor-ID".
	AccessorHeaderPrefix = "header:"
)

// Accessor yields the principal ID for a request, or "" when there is none.
type Accessor func(r *http.Request) string

// ParseAccessor turns a configured accessor name into an Accessor.
func ParseAccessor(name string) (Accessor, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || name == AccessorAuthUser:
		return AuthUser, nil
	case strings.HasPrefix(name, AccessorHeaderPrefix):
		header := strings.TrimSpace(strings.TrimPrefix(name, AccessorHeaderPrefix))
		if header == "" {
			return nil, fmt.Errorf("principal accessor %q: header name is required", name)
		}
		return Header(header), nil
	default:
		return nil, fmt.Errorf("unknown principal accessor %q", name)
	}
}

// AuthUser returns the authenticated user ID stored in the request context.
func AuthUser(r *http.Request) string {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		return ""
	}
	return userID.String()
}

// Header returns an Accessor reading the named header. Oversized or
// multi-line values are ignored.
func Header(name string) Accessor {
	key := textproto.CanonicalMIMEHeaderKey(name)
	return func(r *http.Request) string {
		v := strings.TrimSpace(r.Header.Get(key))
		if len(v) > MaxHeaderValueLength || strings.ContainsAny(v, "\r\n") {
			return ""
		}
		return v
	}
}

// Install returns middleware that installs a principal source for the request.
// The source reads the accessor and the client IP lazily, so it must run after
// the middleware that populates them.
func Install(accessor Accessor) func(http.Handler) http.Handler {
	if accessor == nil {
		accessor = AuthUser
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := principal.Install(r.Context(), principal.Source{
				User: func() string { return accessor(r) },
				IP:   func() string { return requestcontext.ClientIP(r.Context()) },
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
