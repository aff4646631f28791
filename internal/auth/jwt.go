package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const issuer = "portal"

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// MinSecretLength is the shortest HS256 signing secret accepted
const MinSecretLength = 16

// JWTAuthenticator verifies HS256 tokens whose subject is the user id
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration) (*JWTAuthenticator, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID
func (j *JWTAuthenticator) Issue(userID, role string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	now := j.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Authenticate validates token. A claimed userID must equal the subject; an
// empty one is taken from the subject.
func (j *JWTAuthenticator) Authenticate(_ context.Context, userID, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	if userID != "" && userID != claims.Subject {
		return "", ErrSubjectMismatch
	}
	return claims.Subject, nil
}

func (j *JWTAuthenticator) Mode() string { return ModeJWT }
