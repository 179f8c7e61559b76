package principal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "audittrail/pkg/domain"
	"audittrail/pkg/principal"
	"audittrail/pkg/requestcontext"
)

func serve(t *testing.T, accessor Accessor, req *http.Request) context.Context {
	t.Helper()
	var captured context.Context
	handler := Install(accessor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, captured)
	return captured
}

func TestInstallWithAuthUser(t *testing.T) {
	userID := id.UserID(uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.4", "curl/8.0")

	got := serve(t, AuthUser, req.WithContext(ctx))

	p, ok := principal.Resolve(got)
	require.True(t, ok)
	assert.Equal(t, userID.String(), p.ID)
	assert.Equal(t, "198.51.100.4", p.IP)
}

func TestInstallWithoutUserResolvesNothing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), "198.51.100.4", "")

	got := serve(t, AuthUser, req.WithContext(ctx))

	assert.True(t, principal.Installed(got))
	_, ok := principal.Resolve(got)
	assert.False(t, ok, "an address alone is not a principal")
}

func TestInstallWithoutClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	req.Header.Set("X-Actor-ID", "ops-bot")

	got := serve(t, Header("x-actor-id"), req)

	p, ok := principal.Resolve(got)
	require.True(t, ok)
	assert.Equal(t, "ops-bot", p.ID)
	assert.False(t, p.HasIP())
}

func TestHeaderAccessorRejectsUnsafeValues(t *testing.T) {
	accessor := Header("X-Actor-ID")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", strings.Repeat("a", MaxHeaderValueLength+1))
	assert.Empty(t, accessor(req))

	req.Header.Set("X-Actor-ID", "  alice  ")
	assert.Equal(t, "alice", accessor(req))
}

func TestParseAccessor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Operator", "bob")

	for _, name := range []string{"", "auth_user"} {
		accessor, err := ParseAccessor(name)
		require.NoError(t, err)
		assert.Empty(t, accessor(req))
	}

	accessor, err := ParseAccessor("header:X-Operator")
	require.NoError(t, err)
	assert.Equal(t, "bob", accessor(req))

	_, err = ParseAccessor("header:")
	assert.Error(t, err)

	_, err = ParseAccessor("current_user")
	assert.Error(t, err)
}
