package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "audittrail/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTenantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseClientID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Equal(t, "invalid client ID format", err.Error())
	})

	t.Run("nil UUID parses but reports IsNil", func(t *testing.T) {
		parsed, err := ParseUserID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, parsed.IsNil())
	})

	t.Run("round-trips a valid UUID", func(t *testing.T) {
		raw := uuid.New()
		parsed, err := ParseTenantID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, TenantID(raw), parsed)
		assert.Equal(t, raw.String(), parsed.String())
	})
}
