package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var workspaceID = domain.WorkspaceID(uuid.New())
var userID = domain.UserID(uuid.New())
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(workspaceID, userID, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, workspaceID.String(), claims.WorkspaceID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(workspaceID, userID, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	token, err := NewJWTService("other-key", "test-issuer").GenerateAccessToken(workspaceID, userID, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	token, err = NewJWTService("test-signing-key", "someone-else").GenerateAccessToken(workspaceID, userID, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		WorkspaceID:      workspaceID.String(),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	adapter := NewJWTServiceAdapter(jwtService)

	t.Run("workspace and user", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(workspaceID, userID, expiresIn)
		require.NoError(t, err)

		principal, err := adapter.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, workspaceID, principal.WorkspaceID)
		assert.Equal(t, userID, principal.UserID)
	})

	t.Run("workspace only", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(workspaceID, domain.UserID{}, expiresIn)
		require.NoError(t, err)

		principal, err := adapter.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, principal.UserID.IsNil())
	})

	t.Run("malformed workspace claim", func(t *testing.T) {
		_, err := ToPrincipal(&Claims{WorkspaceID: "not-a-uuid"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
