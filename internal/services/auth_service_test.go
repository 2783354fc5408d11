package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/taskboard/internal/services"
)

const (
	testIssuer = "taskboard-test"
	testKey    = "test-signing-key"
)

func newTestAuthService(t *testing.T, ttl time.Duration) services.AuthService {
	t.Helper()
	return services.NewAuthService(zerolog.Nop(), newTestStore(t), testIssuer, []byte(testKey), ttl)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	registered, err := svc.Register(ctx, services.CredentialsParams{
		Email:    "  Alice@Example.com ",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.NotEqual(t, "secret123", registered.User.Password)
	assert.NotEmpty(t, registered.AccessToken)

	claims, err := svc.ParseJWTToken(registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)

	loggedIn, err := svc.Login(ctx, services.CredentialsParams{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, services.CredentialsParams{Email: "bob@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, services.CredentialsParams{Email: "BOB@example.com", Password: "other-pass"})
	assert.ErrorIs(t, err, services.ErrUserAlreadyExists)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, services.CredentialsParams{Email: "carol@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, services.CredentialsParams{Email: "carol@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(ctx, services.CredentialsParams{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_ParseJWTToken(t *testing.T) {
	ctx := context.Background()

	expired := newTestAuthService(t, -time.Minute)
	result, err := expired.Register(ctx, services.CredentialsParams{Email: "dave@example.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = expired.ParseJWTToken(result.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	svc := newTestAuthService(t, time.Hour)
	foreign := services.NewAuthService(zerolog.Nop(), newTestStore(t), testIssuer, []byte("another-key"), time.Hour)
	result, err = foreign.Register(ctx, services.CredentialsParams{Email: "erin@example.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.ParseJWTToken(result.AccessToken)
	assert.Error(t, err)

	_, err = svc.ParseJWTToken("not-a-token")
	assert.Error(t, err)
}
