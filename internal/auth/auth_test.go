package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"portal/internal/mocks"
	"portal/pkg/interfaces"
	"portal/pkg/types"
)

const testSecret = "0123456789abcdef-test-secret"

func TestTrustAuthenticator(t *testing.T) {
	a := TrustAuthenticator{}

	id, err := a.Authenticate(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = a.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingUserID)
	assert.Equal(t, "Missing userId in authentication", err.Error())
}

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	j, err := NewJWTAuthenticator(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := j.Issue("alice", types.RoleStudent)
	require.NoError(t, err)

	id, err := j.Authenticate(context.Background(), "alice", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	id, err = j.Authenticate(context.Background(), "", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id, "subject supplies the identity when none is claimed")
}

func TestJWTAuthenticator_Rejections(t *testing.T) {
	j, err := NewJWTAuthenticator(testSecret, time.Hour)
	require.NoError(t, err)
	token, err := j.Issue("alice", "")
	require.NoError(t, err)

	other, err := NewJWTAuthenticator("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("alice", "")
	require.NoError(t, err)

	expiredIssuer, err := NewJWTAuthenticator(testSecret, time.Minute)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.Issue("alice", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  string
		token   string
		wantErr error
	}{
		{"missing token", "alice", "", ErrMissingToken},
		{"garbage token", "alice", "not-a-jwt", ErrInvalidToken},
		{"wrong signing key", "alice", foreign, ErrInvalidToken},
		{"expired", "alice", expired, ErrInvalidToken},
		{"impersonation", "mallory", token, ErrSubjectMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Authenticate(context.Background(), tt.userID, tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewJWTAuthenticator_ShortSecret(t *testing.T) {
	_, err := NewJWTAuthenticator("short", time.Hour)
	assert.Error(t, err)
}

func TestKnownUserAuthenticator(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockPersistenceGateway(ctrl)

	a, err := New(Config{Mode: ModeTrust, RequireKnownUser: true}, users)
	require.NoError(t, err)
	assert.Equal(t, ModeTrust, a.Mode())

	users.EXPECT().GetUser(gomock.Any(), "alice").Return(&types.User{ID: "alice"}, nil)
	users.EXPECT().GetUser(gomock.Any(), "ghost").Return(nil, interfaces.ErrUserNotFound)
	users.EXPECT().GetUser(gomock.Any(), "bob").Return(nil, errors.New("db down"))

	id, err := a.Authenticate(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = a.Authenticate(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = a.Authenticate(context.Background(), "bob", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownUser)

	// Inner rejection short-circuits the lookup
	_, err = a.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestNew_Modes(t *testing.T) {
	a, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeTrust, a.Mode())

	a, err = New(Config{Mode: ModeJWT, Secret: testSecret}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeJWT, a.Mode())

	_, err = New(Config{Mode: "oauth"}, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = New(Config{Mode: ModeTrust, RequireKnownUser: true}, nil)
	assert.Error(t, err)
}

func TestRequestCredentials(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/messages", nil)
	r.Header.Set("X-User-ID", "alice")
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	id, token := RequestCredentials(ModeTrust, r)
	assert.Equal(t, "alice", id)
	assert.Empty(t, token)

	id, token = RequestCredentials(ModeJWT, r)
	assert.Empty(t, id)
	assert.Equal(t, "abc.def.ghi", token)

	r.Header.Set("Authorization", "Basic xyz")
	_, token = RequestCredentials(ModeJWT, r)
	assert.Empty(t, token)
}
