package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/user"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// EventKind enumerates the notifications pushed by the external auth service.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
	EventInitialSession EventKind = "INITIAL_SESSION"
)

// User is the opaque identity handle issued by the external auth service.
type User struct {
	ID    string `json:"id"` // UUID
	Email string `json:"email"`
}

// Auth is the token material representing a signed-in user.
type Auth struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Event is an asynchronous auth-change notification; Auth is nil on sign-out.
type Event struct {
	Kind EventKind
	Auth *Auth
}

type (
	// AuthAPI is the authentication surface of the external service.
	AuthAPI interface {
		SignIn(ctx context.Context, email, password string) (Auth, error)
		SignOut(ctx context.Context) error
		Refresh(ctx context.Context) (Auth, error)
		// CurrentSession restores the persisted session on load; nil when none.
		CurrentSession(ctx context.Context) (*Auth, error)
		Events() <-chan Event
	}

	// ProfileAPI fetches the application-level record for a user id.
	ProfileAPI interface {
		FetchProfile(ctx context.Context, userID string) (user.Profile, error)
	}

	// PreferenceStore persists the rememberMe flag across restarts,
	// independent of session lifecycle.
	PreferenceStore interface {
		RememberMe() bool
		SetRememberMe(remember bool) error
	}
)

// Snapshot is a fully-settled view of the session state; Profile, when set,
// always belongs to User.
type Snapshot struct {
	User    *User
	Profile *user.Profile
	Role    string
	Loading bool
}
