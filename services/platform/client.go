package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/session"
)

// Client talks to the hosted platform API. It implements the auth, profile
// and submission surfaces the session controller and the quiz runner depend
// on; one instance serves all of them.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  core.Logger

	refreshLeeway time.Duration
	stateDir      string // session persistence, empty disables it

	mu     sync.Mutex
	auth   *session.Auth
	events chan session.Event

	stopRefresh chan struct{}
	refreshOnce sync.Once
}

func NewClient(conf *core.Config, logger core.Logger, stateDir string) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	bufLen := conf.Platform.EventBufferLen
	if bufLen <= 0 {
		bufLen = 8
	}
	return &Client{
		baseURL:       conf.Platform.BaseURL,
		apiKey:        conf.Platform.APIKey,
		http:          &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
		refreshLeeway: conf.Platform.RefreshLeeway,
		stateDir:      stateDir,
		events:        make(chan session.Event, bufLen),
		stopRefresh:   make(chan struct{}),
	}
}

// apiError is the error envelope returned by the platform API.
type apiError struct {
	Err string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshalling request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if authed {
		tok, ok := c.accessToken()
		if !ok {
			return session.ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, method+" "+path)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Err != "" {
			return errors.New(apiErr.Err)
		}
		return errors.New(fmt.Sprintf("%s %s: status %d", method, path, res.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response")
		}
	}
	return nil
}

func (c *Client) accessToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return "", false
	}
	return c.auth.AccessToken, true
}

func (c *Client) emit(ev session.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("auth event dropped, buffer full", map[string]interface{}{"kind": ev.Kind})
	}
}

// Events streams auth-change notifications; consumed by the session controller.
func (c *Client) Events() <-chan session.Event {
	return c.events
}

// Close stops the token refresh loop.
func (c *Client) Close() {
	c.refreshOnce.Do(func() { close(c.stopRefresh) })
}
