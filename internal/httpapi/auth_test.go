package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func legacyStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {Username: "admin", Password: "admin123", Role: domain.RoleAdmin, Active: true, CreatedAt: time.Now().UTC()},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := legacyStore()

	manager := NewAuthManager("test-secret", time.Hour, "123456", store, nil)
	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.NotEqual(t, "admin123", users[0].Password)
	assert.True(t, strings.HasPrefix(users[0].Password, "$2"), users[0].Password)
	assert.GreaterOrEqual(t, store.updates, 1)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := legacyStore()
	store.users["ghost"] = domain.UserAccount{Username: "ghost", Password: "ghost123", Role: domain.RoleCashier, Active: false}
	manager := NewAuthManager("test-secret", time.Hour, "123456", store, nil)

	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "nope"})
	assert.ErrorIs(t, err, errInvalidCredentials)

	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "nobody", Password: "admin123"})
	assert.ErrorIs(t, err, errInvalidCredentials)

	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "ghost123"})
	assert.ErrorIs(t, err, errInactiveAccount)
}

func TestTokenRoundTripCarriesRole(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", legacyStore(), nil)

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "ADMIN", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, resp.Role)

	actor, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", actor.Username)
	assert.Equal(t, domain.RoleAdmin, actor.Role)
	assert.False(t, actor.Elevated)

	other := NewAuthManager("another-secret", time.Hour, "123456", legacyStore(), nil)
	_, err = other.ParseToken(resp.AccessToken)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", legacyStore(), nil)

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, dayClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleAdmin,
	})
	signed, err := token.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = manager.ParseToken(signed)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", legacyStore(), nil)

	signed, err := manager.sign("admin", domain.RoleAdmin, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = manager.ParseToken(signed)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "654321", &userStoreStub{}, nil)

	assert.NotEqual(t, "654321", manager.managerPIN)
	assert.True(t, manager.ValidateManagerPIN("654321"))
	assert.True(t, manager.ValidateManagerPIN(" 654321 "))
	assert.False(t, manager.ValidateManagerPIN("111111"))
	assert.False(t, manager.ValidateManagerPIN(""))
}

func TestUnsetManagerPINNeverValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "", &userStoreStub{}, nil)

	assert.False(t, manager.ValidateManagerPIN("disabled"))
	assert.False(t, manager.ValidateManagerPIN(""))
}
