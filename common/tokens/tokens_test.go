package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Identity{UserID: "0192f0c4-user", Email: "alice@example.com", Username: "alice"}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	s, err := New(Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, opts...)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "valid", cfg: Config{AccessSecret: "a", RefreshSecret: "r"}},
		{name: "missing access secret", cfg: Config{RefreshSecret: "r"}, wantErr: ErrMissingSecret},
		{name: "missing refresh secret", cfg: Config{AccessSecret: "a"}, wantErr: ErrMissingSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultAccessTTL, s.TTL(KindAccess))
			assert.Equal(t, DefaultRefreshTTL, s.TTL(KindRefresh))
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.IssueAccessToken(alice)
	require.NoError(t, err)

	claims, err := s.Verify(token, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())
	assert.Equal(t, KindAccess, claims.Kind)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	s := newTestService(t)

	access, err := s.IssueAccessToken(alice)
	require.NoError(t, err)
	refresh, err := s.IssueRefreshToken(alice)
	require.NoError(t, err)

	_, err = s.Verify(access, KindRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestKindClaimCheckedWithSharedSecret(t *testing.T) {
	s, err := New(Config{AccessSecret: "same", RefreshSecret: "same"})
	require.NoError(t, err)

	refresh, err := s.IssueRefreshToken(alice)
	require.NoError(t, err)

	_, err = s.Verify(refresh, KindAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "expected access token")
}

func TestVerifyRejects(t *testing.T) {
	s := newTestService(t)
	valid, err := s.IssueAccessToken(alice)
	require.NoError(t, err)

	other, err := New(Config{AccessSecret: "other-access", RefreshSecret: "other-refresh"})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken(alice)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Kind:             KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: alice.UserID, Issuer: DefaultIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "foreign key", token: foreign},
		{name: "alg none", token: unsigned},
		{name: "tampered payload", token: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token, KindAccess)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, WithClock(func() time.Time { return now }))

	token, err := s.IssueAccessToken(alice)
	require.NoError(t, err)

	_, err = s.Verify(token, KindAccess)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotate(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, WithClock(func() time.Time { return now }))

	refresh, err := s.IssueRefreshToken(alice)
	require.NoError(t, err)

	// The access token lifetime has long passed but the refresh token is still valid.
	now = now.Add(30 * time.Minute)

	access, claims, err := s.Rotate(refresh)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())

	verified, err := s.Verify(access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, alice, verified.Identity())
	assert.Equal(t, now.Add(time.Minute).Unix(), verified.ExpiresAt.Unix())
}

func TestRotateRejectsAccessToken(t *testing.T) {
	s := newTestService(t)

	access, err := s.IssueAccessToken(alice)
	require.NoError(t, err)

	_, _, err = s.Rotate(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRequiresSubject(t *testing.T) {
	s := newTestService(t)

	_, err := s.IssueAccessToken(Identity{Email: "x@example.com"})
	assert.Error(t, err)

	_, err = s.Issue(alice, Kind("session"))
	assert.Error(t, err)
}
