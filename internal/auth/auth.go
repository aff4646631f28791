package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"portal/pkg/interfaces"
)

// Modes
const (
	ModeTrust = "trust"
	ModeJWT   = "jwt"
)

// Authenticator turns presented credentials into a verified user identity.
// A rejection is a protocol error: callers report it and keep the connection.
type Authenticator interface {
	Authenticate(ctx context.Context, userID, token string) (string, error)
	Mode() string
}

// Config selects and parameterizes the authenticator
type Config struct {
	Mode             string        `mapstructure:"mode"`
	Secret           string        `mapstructure:"secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	RequireKnownUser bool          `mapstructure:"require_known_user"`
}

// New builds the configured authenticator. users may be nil unless
// RequireKnownUser is set.
func New(cfg Config, users interfaces.PersistenceGateway) (Authenticator, error) {
	var a Authenticator
	switch cfg.Mode {
	case ModeTrust, "":
		a = TrustAuthenticator{}
	case ModeJWT:
		j, err := NewJWTAuthenticator(cfg.Secret, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		a = j
	default:
		return nil, errors.Wrap(ErrUnknownMode, cfg.Mode)
	}

	if cfg.RequireKnownUser {
		if users == nil {
			return nil, errors.New("require_known_user needs a user store")
		}
		a = &KnownUserAuthenticator{next: a, users: users}
	}
	return a, nil
}

// TrustAuthenticator accepts any non-empty claimed identity
type TrustAuthenticator struct{}

func (TrustAuthenticator) Authenticate(_ context.Context, userID, _ string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	return userID, nil
}

func (TrustAuthenticator) Mode() string { return ModeTrust }

// KnownUserAuthenticator additionally requires the identity to exist in the
// user directory
type KnownUserAuthenticator struct {
	next  Authenticator
	users interfaces.PersistenceGateway
}

func (k *KnownUserAuthenticator) Authenticate(ctx context.Context, userID, token string) (string, error) {
	id, err := k.next.Authenticate(ctx, userID, token)
	if err != nil {
		return "", err
	}
	if _, err := k.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return "", ErrUnknownUser
		}
		return "", errors.Wrap(err, "user lookup failed")
	}
	return id, nil
}

func (k *KnownUserAuthenticator) Mode() string { return k.next.Mode() }

// RequestCredentials extracts credentials from an HTTP request: a bearer
// token in jwt mode, the X-User-ID header in trust mode
func RequestCredentials(mode string, r *http.Request) (userID, token string) {
	if mode == ModeJWT {
		h := r.Header.Get("Authorization")
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			token = strings.TrimSpace(h[7:])
		}
		return "", token
	}
	return r.Header.Get("X-User-ID"), ""
}
