package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

type authStub struct {
	mu         sync.Mutex
	signInErr  error
	signOutErr error
	refresh    Auth
	refreshErr error
	current    *Auth
	events     chan Event
}

var _ AuthAPI = (*authStub)(nil)

func newAuthStub() *authStub {
	return &authStub{events: make(chan Event, 8)}
}

func (a *authStub) SignIn(ctx context.Context, email, password string) (Auth, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.signInErr != nil {
		return Auth{}, a.signInErr
	}
	return Auth{
		User:        User{ID: "uid-" + email, Email: email},
		AccessToken: "tok-" + email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (a *authStub) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signOutErr
}

func (a *authStub) Refresh(ctx context.Context) (Auth, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refreshErr != nil {
		return Auth{}, a.refreshErr
	}
	return a.refresh, nil
}

func (a *authStub) CurrentSession(ctx context.Context) (*Auth, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, nil
}

func (a *authStub) Events() <-chan Event { return a.events }

type profileStub struct {
	mu       sync.Mutex
	profiles map[string]user.Profile
	err      error
	block    chan struct{} // when set, FetchProfile waits on it or on ctx
	calls    int32
}

var _ ProfileAPI = (*profileStub)(nil)

func newProfileStub(profiles ...user.Profile) *profileStub {
	ps := &profileStub{profiles: make(map[string]user.Profile)}
	for _, p := range profiles {
		ps.profiles[p.ID] = p
	}
	return ps
}

func (ps *profileStub) FetchProfile(ctx context.Context, userID string) (user.Profile, error) {
	atomic.AddInt32(&ps.calls, 1)

	ps.mu.Lock()
	block := ps.block
	ps.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return user.Profile{}, ctx.Err()
		}
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.err != nil {
		return user.Profile{}, ps.err
	}
	prof, ok := ps.profiles[userID]
	if !ok {
		return user.Profile{}, errors.New("no such profile")
	}
	return prof, nil
}

func (ps *profileStub) callCount() int { return int(atomic.LoadInt32(&ps.calls)) }

func newTestController(auth *authStub, profiles *profileStub, prefs PreferenceStore, timeout time.Duration) *Controller {
	if prefs == nil {
		prefs = &MemPrefs{}
	}
	conf := &core.Config{ProfileFetchTimeout: timeout}
	return NewController(auth, profiles, prefs, core.NopLogger{}, conf)
}

func studentProfile(id string) user.Profile {
	return user.Profile{ID: id, Email: id + "@test.local", FullName: "Test Student", Role: user.RoleStudent}
}

func TestControllerLogin(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-ali@test.local"))
	prefs := &MemPrefs{}
	ctl := newTestController(auth, profiles, prefs, time.Second)

	if err := ctl.Login(context.Background(), "ali@test.local", "s3cret", true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	snap := ctl.Snapshot()
	if snap.Loading {
		t.Error("expected loading to have settled")
	}
	if snap.User == nil || snap.User.ID != "uid-ali@test.local" {
		t.Errorf("unexpected user: %+v", snap.User)
	}
	if snap.Profile == nil || snap.Profile.ID != "uid-ali@test.local" {
		t.Errorf("unexpected profile: %+v", snap.Profile)
	}
	if snap.Role != user.RoleStudent {
		t.Errorf("expected role %q, got %q", user.RoleStudent, snap.Role)
	}
	if !prefs.RememberMe() {
		t.Error("expected rememberMe to be persisted")
	}
	if tok, ok := ctl.AccessToken(); !ok || tok != "tok-ali@test.local" {
		t.Errorf("unexpected access token: %q (%v)", tok, ok)
	}
}

func TestControllerLoginRejected(t *testing.T) {
	auth := newAuthStub()
	auth.signInErr = errors.New("invalid credentials")
	ctl := newTestController(auth, newProfileStub(), nil, time.Second)

	err := ctl.Login(context.Background(), "ali@test.local", "wrong", false)
	if !core.IsAuthenticationError(err) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if err.Error() != "invalid credentials" {
		t.Errorf("expected the service message to pass through, got %q", err.Error())
	}

	snap := ctl.Snapshot()
	if snap.User != nil || snap.Profile != nil {
		t.Errorf("expected state untouched after rejection, got %+v", snap)
	}
	if snap.Loading {
		t.Error("expected loading to have settled")
	}
}

func TestControllerLogout(t *testing.T) {
	tests := []struct {
		name       string
		signOutErr error
	}{
		{"remote sign-out succeeds", nil},
		{"remote sign-out fails", errors.New("network down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newAuthStub()
			profiles := newProfileStub(studentProfile("uid-ali@test.local"))
			prefs := &MemPrefs{}
			ctl := newTestController(auth, profiles, prefs, time.Second)

			if err := ctl.Login(context.Background(), "ali@test.local", "s3cret", true); err != nil {
				t.Fatalf("login failed: %v", err)
			}

			auth.mu.Lock()
			auth.signOutErr = tt.signOutErr
			auth.mu.Unlock()

			err := ctl.Logout(context.Background())
			if tt.signOutErr == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.signOutErr != nil && !core.IsSessionError(err) {
				t.Fatalf("expected SessionError, got %v", err)
			}

			// local state clears regardless of the remote outcome
			snap := ctl.Snapshot()
			if snap.User != nil || snap.Profile != nil || snap.Role != "" {
				t.Errorf("expected cleared state, got %+v", snap)
			}
			if snap.Loading {
				t.Error("expected loading to have settled")
			}
			if prefs.RememberMe() {
				t.Error("expected rememberMe cleared")
			}
			if _, ok := ctl.AccessToken(); ok {
				t.Error("expected no access token after logout")
			}
		})
	}
}

func TestControllerRefreshSession(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-ali@test.local"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	if err := ctl.Login(context.Background(), "ali@test.local", "s3cret", false); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	fetches := profiles.callCount()

	auth.mu.Lock()
	auth.refresh = Auth{
		User:        User{ID: "uid-ali@test.local", Email: "ali@test.local"},
		AccessToken: "tok-rotated",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	auth.mu.Unlock()

	if err := ctl.RefreshSession(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok, _ := ctl.AccessToken(); tok != "tok-rotated" {
		t.Errorf("expected rotated token, got %q", tok)
	}
	if snap := ctl.Snapshot(); snap.Profile == nil {
		t.Error("expected profile untouched by refresh")
	}
	if got := profiles.callCount(); got != fetches {
		t.Errorf("expected no profile fetch on refresh, got %d extra", got-fetches)
	}

	auth.mu.Lock()
	auth.refreshErr = errors.New("refresh token revoked")
	auth.mu.Unlock()
	if err := ctl.RefreshSession(context.Background()); !core.IsSessionError(err) {
		t.Fatalf("expected SessionError, got %v", err)
	}
}

func TestControllerFetchDedup(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-1"))
	gate := make(chan struct{})
	profiles.block = gate
	ctl := newTestController(auth, profiles, nil, time.Second)

	ctl.mu.Lock()
	ctl.usr = &User{ID: "uid-1"}
	ctl.mu.Unlock()

	var wg sync.WaitGroup
	first := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(first)
		ctl.fetchProfile(context.Background(), "uid-1", true)
	}()
	<-first
	// wait for the first fetch to register as in flight
	for i := 0; i < 100; i++ {
		ctl.mu.Lock()
		_, busy := ctl.inflight["uid-1"]
		ctl.mu.Unlock()
		if busy {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// overlapping triggers for the same user are no-ops
	ctl.fetchProfile(context.Background(), "uid-1", true)
	ctl.fetchProfile(context.Background(), "uid-1", false)

	close(gate)
	wg.Wait()

	if got := profiles.callCount(); got != 1 {
		t.Errorf("expected exactly one fetch, got %d", got)
	}
	if snap := ctl.Snapshot(); snap.Profile == nil || snap.Profile.ID != "uid-1" {
		t.Errorf("expected profile populated, got %+v", snap.Profile)
	}
}

func TestControllerFetchTimeout(t *testing.T) {
	tests := []struct {
		name        string
		cached      *user.Profile
		wantProfile bool
	}{
		{"cached profile survives timeout", &user.Profile{ID: "uid-1", Role: user.RoleStudent}, true},
		{"no cache yields no profile", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newAuthStub()
			profiles := newProfileStub(studentProfile("uid-1"))
			profiles.block = make(chan struct{}) // never released; fetch rides the timeout
			ctl := newTestController(auth, profiles, nil, 10*time.Millisecond)

			ctl.mu.Lock()
			ctl.usr = &User{ID: "uid-1"}
			ctl.profile = tt.cached
			ctl.mu.Unlock()

			ctl.fetchProfile(context.Background(), "uid-1", true)

			snap := ctl.Snapshot()
			if tt.wantProfile && (snap.Profile == nil || snap.Profile.ID != "uid-1") {
				t.Errorf("expected cached profile kept, got %+v", snap.Profile)
			}
			if !tt.wantProfile && snap.Profile != nil {
				t.Errorf("expected no profile, got %+v", snap.Profile)
			}
		})
	}
}

func TestControllerFetchErrorClearsProfile(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub()
	profiles.err = errors.New("boom")
	ctl := newTestController(auth, profiles, nil, time.Second)

	// a non-timeout failure must not leave a stale profile behind
	ctl.mu.Lock()
	ctl.usr = &User{ID: "uid-1"}
	ctl.profile = &user.Profile{ID: "uid-1"}
	ctl.mu.Unlock()

	ctl.fetchProfile(context.Background(), "uid-1", true)

	if snap := ctl.Snapshot(); snap.Profile != nil {
		t.Errorf("expected profile cleared, got %+v", snap.Profile)
	}
}

func TestControllerStaleFetchDiscarded(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-1"))
	gate := make(chan struct{})
	profiles.block = gate
	ctl := newTestController(auth, profiles, nil, time.Second)

	ctl.mu.Lock()
	ctl.usr = &User{ID: "uid-1"}
	ctl.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctl.fetchProfile(context.Background(), "uid-1", true)
	}()

	// the session moves on to another user while the fetch is in flight
	for i := 0; i < 100; i++ {
		ctl.mu.Lock()
		_, busy := ctl.inflight["uid-1"]
		ctl.mu.Unlock()
		if busy {
			break
		}
		time.Sleep(time.Millisecond)
	}
	ctl.mu.Lock()
	ctl.usr = &User{ID: "uid-2"}
	ctl.mu.Unlock()

	close(gate)
	<-done

	if snap := ctl.Snapshot(); snap.Profile != nil {
		t.Errorf("expected stale result discarded, got %+v", snap.Profile)
	}
}

func TestControllerInitialSessionSkipsRefetch(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-ali@test.local"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	if err := ctl.Login(context.Background(), "ali@test.local", "s3cret", false); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	fetches := profiles.callCount()

	aut := Auth{
		User:        User{ID: "uid-ali@test.local", Email: "ali@test.local"},
		AccessToken: "tok-ali@test.local",
	}
	ctl.handleEvent(context.Background(), Event{Kind: EventInitialSession, Auth: &aut})

	if got := profiles.callCount(); got != fetches {
		t.Errorf("expected no re-fetch for a matching cached profile, got %d extra", got-fetches)
	}
	snap := ctl.Snapshot()
	if snap.Profile == nil || snap.Profile.ID != "uid-ali@test.local" {
		t.Errorf("expected profile kept, got %+v", snap.Profile)
	}
	if snap.Loading {
		t.Error("expected loading to have settled")
	}
}

func TestControllerSignedInEventFetchesDistinctUser(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-1"), studentProfile("uid-2"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	aut := Auth{User: User{ID: "uid-1"}, AccessToken: "tok-1"}
	ctl.handleEvent(context.Background(), Event{Kind: EventSignedIn, Auth: &aut})

	snap := ctl.Snapshot()
	if snap.User == nil || snap.User.ID != "uid-1" {
		t.Fatalf("unexpected user: %+v", snap.User)
	}
	if snap.Profile == nil || snap.Profile.ID != "uid-1" {
		t.Fatalf("unexpected profile: %+v", snap.Profile)
	}

	// switching users drops the old profile before the new fetch lands
	aut2 := Auth{User: User{ID: "uid-2"}, AccessToken: "tok-2"}
	ctl.handleEvent(context.Background(), Event{Kind: EventSignedIn, Auth: &aut2})

	snap = ctl.Snapshot()
	if snap.User == nil || snap.User.ID != "uid-2" {
		t.Fatalf("unexpected user after switch: %+v", snap.User)
	}
	if snap.Profile == nil || snap.Profile.ID != "uid-2" {
		t.Fatalf("unexpected profile after switch: %+v", snap.Profile)
	}
}

func TestControllerEventLeavesConcurrentLoginLoading(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-ali@test.local"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	// mid-Login state: auth applied, profile fetch still in flight
	aut := Auth{User: User{ID: "uid-ali@test.local"}, AccessToken: "tok-ali@test.local"}
	ctl.mu.Lock()
	ctl.applyAuthLocked(&aut)
	ctl.loading = true
	ctl.mu.Unlock()

	// the notification for the same sign-in must not settle loading under the
	// in-flight Login
	ctl.handleEvent(context.Background(), Event{Kind: EventSignedIn, Auth: &aut})

	if !ctl.Snapshot().Loading {
		t.Error("expected the in-flight login to keep ownership of loading")
	}

	// the login's own completion settles it
	ctl.setLoading(false)
	if ctl.Snapshot().Loading {
		t.Error("expected loading to settle once the login completes")
	}
}

func TestControllerSignedOutEvent(t *testing.T) {
	auth := newAuthStub()
	profiles := newProfileStub(studentProfile("uid-ali@test.local"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	if err := ctl.Login(context.Background(), "ali@test.local", "s3cret", false); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	ctl.handleEvent(context.Background(), Event{Kind: EventSignedOut})

	snap := ctl.Snapshot()
	if snap.User != nil || snap.Profile != nil {
		t.Errorf("expected cleared state, got %+v", snap)
	}
	if snap.Loading {
		t.Error("expected loading false after sign-out")
	}
}

func TestControllerStartRestoresSession(t *testing.T) {
	auth := newAuthStub()
	auth.current = &Auth{
		User:        User{ID: "uid-1", Email: "ali@test.local"},
		AccessToken: "tok-restored",
	}
	profiles := newProfileStub(studentProfile("uid-1"))
	ctl := newTestController(auth, profiles, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctl.Start(ctx)
	defer ctl.Close()

	snap := ctl.Snapshot()
	if snap.Loading {
		t.Error("expected loading settled after restore")
	}
	if snap.User == nil || snap.User.ID != "uid-1" {
		t.Errorf("unexpected user: %+v", snap.User)
	}
	if snap.Profile == nil || snap.Profile.ID != "uid-1" {
		t.Errorf("unexpected profile: %+v", snap.Profile)
	}
}

func TestControllerStartWithoutSession(t *testing.T) {
	auth := newAuthStub()
	ctl := newTestController(auth, newProfileStub(), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctl.Start(ctx)
	defer ctl.Close()

	snap := ctl.Snapshot()
	if snap.Loading {
		t.Error("expected loading settled with no stored session")
	}
	if snap.User != nil || snap.Profile != nil {
		t.Errorf("expected empty state, got %+v", snap)
	}
	if _, err := ctl.CurrentUserID(); errors.Cause(err) != ErrNotAuthenticated {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}
