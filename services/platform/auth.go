package platform

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yedirenklicinar/akademi/core/session"
)

var _ session.AuthAPI = (*Client)(nil)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignIn exchanges credentials for token material and announces the sign-in.
func (c *Client) SignIn(ctx context.Context, email, password string) (session.Auth, error) {
	var auth session.Auth
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, &auth, false); err != nil {
		return session.Auth{}, err
	}

	c.setAuth(&auth)
	c.emit(session.Event{Kind: session.EventSignedIn, Auth: &auth})
	return auth, nil
}

// SignOut revokes the session server-side and announces the sign-out. Local
// state clears even when the revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)

	c.setAuth(nil)
	c.emit(session.Event{Kind: session.EventSignedOut})
	return err
}

// Refresh rotates the token pair and announces the new material.
func (c *Client) Refresh(ctx context.Context) (session.Auth, error) {
	c.mu.Lock()
	var refreshToken string
	if c.auth != nil {
		refreshToken = c.auth.RefreshToken
	}
	c.mu.Unlock()
	if refreshToken == "" {
		return session.Auth{}, session.ErrNotAuthenticated
	}

	var auth session.Auth
	if err := c.do(ctx, http.MethodPost, "/auth/token-refresh", refreshRequest{RefreshToken: refreshToken}, &auth, false); err != nil {
		return session.Auth{}, err
	}

	c.setAuth(&auth)
	c.emit(session.Event{Kind: session.EventTokenRefreshed, Auth: &auth})
	return auth, nil
}

// CurrentSession restores persisted token material; nil when none survives.
// An expired-but-refreshable session is rotated before being handed back.
func (c *Client) CurrentSession(ctx context.Context) (*session.Auth, error) {
	c.mu.Lock()
	auth := c.auth
	c.mu.Unlock()

	if auth == nil {
		auth = c.loadSession()
		if auth == nil {
			return nil, nil
		}
		c.setAuth(auth)
	}

	if !auth.ExpiresAt.IsZero() && time.Now().After(auth.ExpiresAt.Add(-c.refreshLeeway)) {
		fresh, err := c.Refresh(ctx)
		if err != nil {
			c.setAuth(nil)
			return nil, err
		}
		auth = &fresh
	}

	c.emit(session.Event{Kind: session.EventInitialSession, Auth: auth})
	return auth, nil
}

// StartAutoRefresh keeps the session alive, rotating tokens shortly before
// expiry until ctx is cancelled or the client closes.
func (c *Client) StartAutoRefresh(ctx context.Context) {
	go func() {
		for {
			c.mu.Lock()
			var wait time.Duration
			if c.auth != nil && !c.auth.ExpiresAt.IsZero() {
				wait = time.Until(c.auth.ExpiresAt.Add(-c.refreshLeeway))
			}
			c.mu.Unlock()
			if wait <= 0 {
				wait = c.refreshLeeway
				if wait <= 0 {
					wait = time.Minute
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-c.stopRefresh:
				return
			case <-time.After(wait):
			}

			if _, ok := c.accessToken(); !ok {
				continue
			}
			if _, err := c.Refresh(ctx); err != nil {
				c.logger.Warn("auto-refreshing token", err)
			}
		}
	}()
}

func (c *Client) setAuth(auth *session.Auth) {
	c.mu.Lock()
	c.auth = auth
	c.mu.Unlock()
	c.persistSession(auth)
}

func (c *Client) sessionPath() string {
	if c.stateDir == "" {
		return ""
	}
	return filepath.Join(c.stateDir, "session.json")
}

func (c *Client) persistSession(auth *session.Auth) {
	path := c.sessionPath()
	if path == "" {
		return
	}
	if auth == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("removing stored session", err)
		}
		return
	}
	raw, err := json.Marshal(auth)
	if err != nil {
		c.logger.Warn("marshalling session", err)
		return
	}
	if err := ioutil.WriteFile(path, raw, 0600); err != nil {
		c.logger.Warn("storing session", err)
	}
}

func (c *Client) loadSession() *session.Auth {
	path := c.sessionPath()
	if path == "" {
		return nil
	}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil
	}
	var auth session.Auth
	if err := json.Unmarshal(raw, &auth); err != nil {
		c.logger.Warn("decoding stored session", err)
		return nil
	}
	return &auth
}
