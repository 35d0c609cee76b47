package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/repository/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTokenService(t *testing.T, accessTTL, sessionTTL time.Duration) (*TokenService, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	svc, err := NewTokenService(&config.JWTConfig{
		SecretKey:     testSecret,
		AccessExpiry:  accessTTL,
		SessionExpiry: sessionTTL,
	}, store, testLogger())
	require.NoError(t, err)
	return svc, store
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService(&config.JWTConfig{SecretKey: "short"}, memory.NewSessionStore(), testLogger())
	require.Error(t, err)
}

func TestTokenService_IssueAndAuthenticate(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), issued.ExpiresIn)
	assert.NotEmpty(t, issued.AccessToken)

	auth, err := svc.Authenticate(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", auth.UserID)
	assert.Equal(t, issued.JTI, auth.JTI)
	assert.False(t, auth.AccessExpired)
}

func TestTokenService_AuthenticateGarbage(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated, "token %q", token)
	}
}

func TestTokenService_AuthenticateForeignSignature(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, time.Hour)
	other, _ := newTokenService(t, 15*time.Minute, time.Hour)

	issued, err := other.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	// Same secret and store are separate instances; the store lookup, not
	// the signature, is what fails here. Re-key to force signature failure.
	foreign, err := NewTokenService(&config.JWTConfig{
		SecretKey:     "ffffffffffffffffffffffffffffffff",
		AccessExpiry:  15 * time.Minute,
		SessionExpiry: time.Hour,
	}, memory.NewSessionStore(), testLogger())
	require.NoError(t, err)
	foreignToken, err := foreign.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), foreignToken.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	// Unknown to this issuer's store even though the signature checks out
	// on the other service.
	_, err = svc.Authenticate(context.Background(), issued.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestTokenService_ExpiredAccessWithinSession(t *testing.T) {
	svc, _ := newTokenService(t, -time.Minute, time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	auth, err := svc.Authenticate(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.True(t, auth.AccessExpired)
	assert.Equal(t, "user-1", auth.UserID)
}

func TestTokenService_SessionLapsed(t *testing.T) {
	svc, _ := newTokenService(t, -2*time.Hour, -time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestTokenService_Revoke(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, issued.JTI))

	_, err = svc.Authenticate(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
}

func TestTokenService_RevokeAll(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, time.Hour)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)
	bystander, err := svc.Issue(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, "user-1"))

	_, err = svc.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
	_, err = svc.Authenticate(ctx, second.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)

	// Other users keep their sessions.
	_, err = svc.Authenticate(ctx, bystander.AccessToken)
	assert.NoError(t, err)
}

func TestTokenService_IssueDoesNotTouchOlderTokens(t *testing.T) {
	svc, _ := newTokenService(t, 15*time.Minute, time.Hour)
	ctx := context.Background()

	old, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	auth, err := svc.Authenticate(ctx, old.AccessToken)
	require.NoError(t, err)
	assert.False(t, auth.AccessExpired)
}
