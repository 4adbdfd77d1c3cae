package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/session"
	"github.com/yedirenklicinar/akademi/core/user"
)

const (
	jwtContextKey     = "userToken"
	contextProfileKey = "profile"

	tokenAudience   = "Akademi"
	refreshAudience = "Akademi/refresh" // refresh tokens must not pass as access tokens
)

// newJWTConfig builds the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	Role         string `json:"role,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool   `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

func GetProfileClaims(conf *core.Config, prof user.Profile, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   prof.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        prof.Email,
		FullName:     prof.FullName,
		Role:         prof.Role,
		IsStudent:    prof.IsStudent(),
		IsTeacher:    prof.IsTeacher(),
		IsAdmin:      prof.IsAdmin(),
	}
}

func authenticate(email, pwd string, svc user.Service) (user.Profile, error) {
	prof, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.Profile{}, errAuthenticationFailed
		}
		return user.Profile{}, errors.Wrap(err, "finding profile by email")
	}
	if err = prof.CheckPassword(pwd); err != nil {
		return user.Profile{}, errAuthenticationFailed
	}
	if prof.IsActive != nil && !*prof.IsActive {
		return user.Profile{}, errAccountDeactivated
	}
	prof, err = svc.SetLastLogin(prof)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "setting lastLogin")
	}
	return prof, nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// newAuthResponse issues a fresh access/refresh token pair for the profile.
// origIat carries over on refresh so the refresh window never slides.
func newAuthResponse(conf *core.Config, prof user.Profile, origIat ...int64) (session.Auth, error) {
	claims := GetProfileClaims(conf, prof, origIat...)

	access, err := GenerateToken(conf, claims)
	if err != nil {
		return session.Auth{}, errors.Wrap(err, "generating access token")
	}

	refreshClaims := *claims
	refreshClaims.Audience = refreshAudience
	refreshClaims.ExpiresAt = time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta).Unix()
	refresh, err := GenerateToken(conf, &refreshClaims)
	if err != nil {
		return session.Auth{}, errors.Wrap(err, "generating refresh token")
	}

	return session.Auth{
		User:         session.User{ID: prof.ID, Email: prof.Email},
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

// exchangeRefreshToken validates a refresh token and issues a new pair.
func exchangeRefreshToken(conf *core.Config, raw string, svc user.Service) (session.Auth, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return session.Auth{}, errRefreshExpired
		}
		return session.Auth{}, errUnauthorized
	}
	if !token.Valid || claims.Audience != refreshAudience {
		return session.Auth{}, errUnauthorized
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return session.Auth{}, errRefreshExpired
	}

	prof, err := svc.GetByID(claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return session.Auth{}, errUnauthorized
		}
		return session.Auth{}, errors.Wrap(err, "finding profile by ID")
	}
	if prof.IsActive != nil && !*prof.IsActive {
		return session.Auth{}, errAccountDeactivated
	}

	return newAuthResponse(conf, prof, claims.OrigIssuedAt)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			if claims.Audience == refreshAudience {
				return Claims{}, errUnauthorized
			}
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextProfile(ctx echo.Context, svc user.Service, clms ...Claims) (user.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(user.Profile); ok {
		return prof, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.Profile{}, errors.Wrap(err, "getting context claims")
		}
	}

	prof, err := svc.GetByID(claims.Subject)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(contextProfileKey, prof)
	return prof, nil
}

func contextHasAnyRole(ctx echo.Context, roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			if claims.Role == role {
				return true
			}
		}
	}
	return false
}
