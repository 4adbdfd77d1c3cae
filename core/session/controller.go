package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

// Controller is the single process-wide authority for "who is logged in and
// what is their role". It reconciles user-initiated calls (Login, Logout,
// RefreshSession) with the asynchronous notifications pushed by the external
// auth service, and owns the profile-fetch sub-protocol: one fetch in flight
// per user id, bounded by a timeout, falling back to the cached profile when
// the fetch times out.
//
// All mutations go through the controller's own operations (single-writer
// discipline); readers get a settled view via Snapshot.
type Controller struct {
	authAPI      AuthAPI
	profileAPI   ProfileAPI
	prefs        PreferenceStore
	logger       core.Logger
	fetchTimeout time.Duration

	mu       sync.Mutex
	auth     *Auth
	usr      *User
	profile  *user.Profile
	loading  bool
	inflight map[string]struct{} // user ids with a profile fetch in flight

	done      chan struct{}
	closeOnce sync.Once
}

func NewController(authAPI AuthAPI, profileAPI ProfileAPI, prefs PreferenceStore, logger core.Logger, conf *core.Config) *Controller {
	if logger == nil {
		logger = core.NopLogger{}
	}
	timeout := conf.ProfileFetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Controller{
		authAPI:      authAPI,
		profileAPI:   profileAPI,
		prefs:        prefs,
		logger:       logger,
		fetchTimeout: timeout,
		loading:      true,
		inflight:     make(map[string]struct{}),
		done:         make(chan struct{}),
	}
}

// Start restores any persisted session and begins consuming auth events.
func (c *Controller) Start(ctx context.Context) {
	c.restore(ctx)
	go c.listen(ctx)
}

// Close stops the event listener.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Login authenticates against the external service and resolves only once the
// new user's profile fetch has completed (or failed). A rejection by the
// service surfaces as core.AuthenticationError carrying the service's message
// unchanged.
func (c *Controller) Login(ctx context.Context, email, password string, rememberMe bool) error {
	c.setLoading(true)
	defer c.setLoading(false)

	auth, err := c.authAPI.SignIn(ctx, email, password)
	if err != nil {
		return core.NewAuthenticationError(err.Error())
	}

	if err := c.prefs.SetRememberMe(rememberMe); err != nil {
		c.logger.Warn("persisting rememberMe", err)
	}

	c.mu.Lock()
	c.applyAuthLocked(&auth)
	c.mu.Unlock()

	c.fetchProfile(ctx, auth.User.ID, true /* mandatory */)
	return nil
}

// Logout requests a remote sign-out and clears local state unconditionally
// (optimistic clear): a dangling remote session is recoverable, a stuck local
// one is not. The remote error, if any, still surfaces as core.SessionError.
func (c *Controller) Logout(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	err := c.authAPI.SignOut(ctx)

	c.mu.Lock()
	c.auth, c.usr, c.profile = nil, nil, nil
	c.mu.Unlock()
	if perr := c.prefs.SetRememberMe(false); perr != nil {
		c.logger.Warn("clearing rememberMe", perr)
	}

	if err != nil {
		return core.NewSessionError("signing out", err)
	}
	return nil
}

// RefreshSession rotates the session token; profile state is untouched.
func (c *Controller) RefreshSession(ctx context.Context) error {
	auth, err := c.authAPI.Refresh(ctx)
	if err != nil {
		return core.NewSessionError("refreshing session", err)
	}

	c.mu.Lock()
	c.applyAuthLocked(&auth)
	c.mu.Unlock()
	return nil
}

// Snapshot returns a settled view of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snap Snapshot
	snap.Loading = c.loading
	if c.usr != nil {
		u := *c.usr
		snap.User = &u
	}
	if c.profile != nil {
		p := *c.profile
		snap.Profile = &p
		snap.Role = p.Role
	}
	return snap
}

// CurrentUserID identifies the signed-in user; quiz submission hangs off this.
func (c *Controller) CurrentUserID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usr == nil {
		return "", ErrNotAuthenticated
	}
	return c.usr.ID, nil
}

// AccessToken exposes the current bearer token for API collaborators.
func (c *Controller) AccessToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return "", false
	}
	return c.auth.AccessToken, true
}

// restore performs the initial session load; loading always settles to false.
func (c *Controller) restore(ctx context.Context) {
	defer c.setLoading(false)

	auth, err := c.authAPI.CurrentSession(ctx)
	if err != nil {
		c.logger.Warn("restoring session", err)
		return
	}

	c.mu.Lock()
	c.applyAuthLocked(auth)
	c.mu.Unlock()

	if auth != nil {
		c.fetchProfile(ctx, auth.User.ID, true /* mandatory */)
	}
}

func (c *Controller) listen(ctx context.Context) {
	events := c.authAPI.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventSignedOut:
		c.mu.Lock()
		c.auth, c.usr, c.profile = nil, nil, nil
		c.loading = false
		c.mu.Unlock()

	case EventTokenRefreshed, EventUserUpdated:
		c.mu.Lock()
		c.applyAuthLocked(ev.Auth)
		c.mu.Unlock()

	case EventSignedIn, EventInitialSession:
		if ev.Auth == nil {
			c.mu.Lock()
			c.auth, c.usr, c.profile = nil, nil, nil
			c.loading = false
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		userID := ev.Auth.User.ID
		cached := c.profile != nil && c.profile.ID == userID
		distinct := c.usr == nil || c.usr.ID != userID
		raised := distinct && !cached
		if raised {
			c.loading = true
		}
		c.applyAuthLocked(ev.Auth)
		c.mu.Unlock()

		// an INITIAL_SESSION right after the initial load must not re-fetch a
		// profile the load already populated
		if !cached {
			c.fetchProfile(ctx, userID, false)
		}
		// only settle loading when this event raised it; a concurrent Login
		// still owns the flag otherwise
		if raised {
			c.setLoading(false)
		}
	}
}

// fetchProfile runs the bounded profile lookup for userID.
// mandatory forces the fetch even when a matching profile is cached (initial
// load and login paths); otherwise a matching cached profile is trusted.
// At most one fetch is in flight per user id; overlapping triggers no-op.
func (c *Controller) fetchProfile(ctx context.Context, userID string, mandatory bool) {
	c.mu.Lock()
	if _, busy := c.inflight[userID]; busy {
		c.mu.Unlock()
		return
	}
	if !mandatory && c.profile != nil && c.profile.ID == userID {
		c.mu.Unlock()
		return
	}
	c.inflight[userID] = struct{}{}
	c.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	prof, err := c.profileAPI.FetchProfile(fctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, userID)

	// the session moved on while we were in flight; a stale result must never
	// be exposed as the current user's profile
	if c.usr == nil || c.usr.ID != userID {
		return
	}

	switch {
	case err == nil:
		p := prof
		c.profile = &p
	case errors.Cause(err) == context.DeadlineExceeded || fctx.Err() == context.DeadlineExceeded:
		// timeout is non-fatal when we already hold this user's profile
		c.logger.Warn("profile fetch timed out", core.NewProfileFetchError(userID, err))
		if c.profile != nil && c.profile.ID == userID {
			return
		}
		c.profile = nil
	default:
		c.logger.Error("profile fetch failed", core.NewProfileFetchError(userID, err))
		c.profile = nil
	}
}

// applyAuthLocked installs new token material; callers hold c.mu.
// A profile belonging to a different user than the incoming one is dropped in
// the same critical section so readers never observe a mismatched pair.
func (c *Controller) applyAuthLocked(auth *Auth) {
	c.auth = auth
	if auth == nil {
		c.usr = nil
		c.profile = nil
		return
	}
	u := auth.User
	c.usr = &u
	if c.profile != nil && c.profile.ID != u.ID {
		c.profile = nil
	}
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}
