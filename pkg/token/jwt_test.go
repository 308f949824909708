package token_test

import (
	"testing"

	"tarot-ai-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := token.NewJWTManager("secret", 1)

	signed, sid, err := m.GenerateToken()
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	claims, err := m.VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, sid, claims.SessionID)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	signed, _, err := token.NewJWTManager("secret-a", 1).GenerateToken()
	require.NoError(t, err)

	_, err = token.NewJWTManager("secret-b", 1).VerifyToken(signed)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	// 0 小时有效期的 token 签发即过期
	m := token.NewJWTManager("secret", 0)
	signed, _, err := m.GenerateToken()
	require.NoError(t, err)

	_, err = m.VerifyToken(signed)
	assert.Error(t, err)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	_, err := token.NewJWTManager("secret", 1).VerifyToken("not.a.token")
	assert.Error(t, err)
}
