package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
)

func TestNewWorkspace(t *testing.T) {
	id := domain.WorkspaceID(uuid.New())
	now := time.Now()

	ws, err := NewWorkspace(id, "  Acme  ", now)
	require.NoError(t, err)
	assert.Equal(t, "Acme", ws.Name)

	_, err = NewWorkspace(id, "   ", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewWorkspace(id, strings.Repeat("a", 129), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestParseAPIKey(t *testing.T) {
	prefix, secret, err := ParseAPIKey(FormatAPIKey("a1b2c3", "s3cr3t_with_underscore"))
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", prefix)
	assert.Equal(t, "s3cr3t_with_underscore", secret)

	for _, bad := range []string{"", "esk_", "esk_abc", "esk__secret", "sk_abc_def", "esk_abc_"} {
		_, _, err := ParseAPIKey(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "key %q", bad)
	}
}
