package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resq/internal/models"
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetSession installs tokens obtained elsewhere, e.g. from the environment.
func (c *Client) SetSession(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return c.exchange(ctx, c.baseURL+"/auth/v1/token?grant_type=password", credentials{Email: email, Password: password})
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return c.exchange(ctx, c.baseURL+"/auth/v1/signup", credentials{Email: email, Password: password})
}

// RefreshSession trades the refresh token for a new access token.
func (c *Client) RefreshSession(ctx context.Context) (*models.Session, error) {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()
	if refresh == "" {
		return nil, nil
	}
	return c.exchange(ctx, c.baseURL+"/auth/v1/token?grant_type=refresh_token", map[string]string{"refresh_token": refresh})
}

// SignOut revokes the session remotely on a best-effort basis and always
// clears the local tokens.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.currentToken() != "" {
		err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil, nil, nil)
	}
	c.SetSession("", "")
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// Session decodes the current access token. An expired token is refreshed
// when a refresh token is available, otherwise the caller is signed out.
func (c *Client) Session(ctx context.Context) (*models.Session, error) {
	token := c.currentToken()
	if token == "" {
		return nil, nil
	}

	session, err := c.parseToken(token)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("invalid session token: %w", err)
		}
		session = nil
	}

	if session == nil || session.Expired(c.now()) {
		refreshed, err := c.RefreshSession(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Session refresh failed")
			return nil, nil
		}
		return refreshed, nil
	}
	return session, nil
}

func (c *Client) parseToken(token string) (*models.Session, error) {
	claims := &sessionClaims{}
	if len(c.jwtSecret) > 0 {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return c.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
		if err != nil {
			return nil, err
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, err
		}
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	session := &models.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (c *Client) exchange(ctx context.Context, endpoint string, body interface{}) (*models.Session, error) {
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil, &resp); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if resp.AccessToken == "" {
		// Sign-up with email confirmation enabled returns no session.
		return nil, nil
	}

	c.SetSession(resp.AccessToken, resp.RefreshToken)

	session, err := c.parseToken(resp.AccessToken)
	if err != nil {
		session = &models.Session{UserID: resp.User.ID, Email: resp.User.Email, AccessToken: resp.AccessToken}
	}
	if session.ExpiresAt.IsZero() && resp.ExpiresIn > 0 {
		session.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if session.Email == "" {
		session.Email = resp.User.Email
	}
	return session, nil
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}
