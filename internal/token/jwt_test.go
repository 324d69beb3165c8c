package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
	time.Hour,
)
var parentID = id.ParentID(uuid.New())

func Test_IssueToken(t *testing.T) {
	tokenString, err := jwtService.IssueToken(parentID)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := jwtService.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, parentID.String(), claims.ParentID)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	expired := NewJWTService("test-signing-key", "test-issuer", "test-audience", time.Hour)
	expired.tokenTTL = -time.Hour

	tokenString, err := expired.IssueToken(parentID)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(tokenString)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer", "test-audience", time.Hour)

	tokenString, err := other.IssueToken(parentID)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(tokenString)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "other-audience", time.Hour)

	tokenString, err := other.IssueToken(parentID)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(tokenString)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ParentIDFromToken(t *testing.T) {
	tokenString, err := jwtService.IssueToken(parentID)
	require.NoError(t, err)

	got, err := jwtService.ParentIDFromToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, parentID, got)
}
