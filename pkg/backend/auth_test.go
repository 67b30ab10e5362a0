package backend

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, subject string, expires time.Time) string {
	t.Helper()
	claims := sessionClaims{
		Email: subject + "@example.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestSessionWithoutToken(t *testing.T) {
	c := newMockedClient(t)

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionUnverified(t *testing.T) {
	c := newMockedClient(t)
	c.SetSession(signToken(t, "whatever", "user-1", time.Now().Add(time.Hour)), "")

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "user-1@example.test", session.Email)
}

func TestSessionVerifiedRejectsForeignSignature(t *testing.T) {
	c := newMockedClient(t)
	c.jwtSecret = []byte("right-secret")
	c.SetSession(signToken(t, "wrong-secret", "user-1", time.Now().Add(time.Hour)), "")

	_, err := c.Session(context.Background())
	require.Error(t, err)
}

func TestExpiredSessionWithoutRefreshIsSignedOut(t *testing.T) {
	c := newMockedClient(t)
	c.jwtSecret = []byte("secret")
	c.SetSession(signToken(t, "secret", "user-1", time.Now().Add(-time.Minute)), "")

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestExpiredSessionIsRefreshed(t *testing.T) {
	c := newMockedClient(t)
	c.SetSession(signToken(t, "s", "user-1", time.Now().Add(-time.Minute)), "refresh-1")

	fresh := signToken(t, "s", "user-1", time.Now().Add(time.Hour))
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/token?grant_type=refresh_token",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		}))

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, fresh, c.currentToken())
}

func TestSignInStoresTokens(t *testing.T) {
	c := newMockedClient(t)
	token := signToken(t, "s", "user-7", time.Now().Add(time.Hour))
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/token?grant_type=password",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"access_token":  token,
			"refresh_token": "r",
			"user":          map[string]string{"id": "user-7", "email": "user-7@example.test"},
		}))

	session, err := c.SignIn(context.Background(), "user-7@example.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user-7", session.UserID)
	assert.Equal(t, token, c.currentToken())
}

func TestSignInRejected(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/token?grant_type=password",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`))

	_, err := c.SignIn(context.Background(), "a@b.test", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
	assert.Empty(t, c.currentToken())
}

func TestSignOutClearsTokens(t *testing.T) {
	c := newMockedClient(t)
	c.SetSession("token", "refresh")
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/logout",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	require.NoError(t, c.SignOut(context.Background()))
	assert.Empty(t, c.currentToken())
}
