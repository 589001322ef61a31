package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	testUsername     = "testuser"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
	testSecret       = []byte("test-jwt-secret")
)

type stubUsersRepo struct {
	user *User
	err  error
}

func (r *stubUsersRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.user == nil || r.user.Username != username {
		return nil, ErrUserNotFound
	}
	return r.user, nil
}

func testUser() *User {
	return &User{
		ID:           1,
		Username:     testUsername,
		PasswordHash: testPasswordHash,
		DisplayName:  "Test User",
		CreatedAt:    time.Now(),
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestService_Login(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)
	require.NotNil(t, authService)
	assert.Equal(t, time.Hour, authService.ttl)

	mock.Regexp().ExpectSet(`stride-service-session\|\|.+`, `1`, time.Hour).SetVal("OK")
	mock.Regexp().ExpectSAdd(tokensSetKey, `.+`).SetVal(1)

	token, err := authService.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return testSecret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.Equal(t, "1", claims.Subject)
}

func TestService_Login_wrongCredentials(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)

	token, err := authService.Login(context.Background(), testUsername, "invalid_pass")
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)

	token, err = authService.Login(context.Background(), "who_dis", testPassword)
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)
}

func TestService_Verify(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.Itoa(1),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	mock.ExpectGet(sessionKeyPrefix + token).SetVal("1")

	userID, err := authService.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1, userID)
}

func TestService_Verify_revoked(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.Itoa(1),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	// session gone from the allow-list, token no longer accepted
	mock.ExpectGet(sessionKeyPrefix + token).RedisNil()

	_, err = authService.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Verify_invalidTokens(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)

	now := time.Now()

	// expired token
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "1",
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = authService.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// wrong issuer
	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = authService.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// wrong secret
	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = authService.Verify(context.Background(), wrongSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// garbage
	_, err = authService.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Logout(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(&stubUsersRepo{user: testUser()}, testSecret, time.Hour, rdb)

	token := "some-token"
	mock.ExpectDel(sessionKeyPrefix + token).SetVal(1)
	mock.ExpectSRem(tokensSetKey, token).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	// unknown token, nothing removed
	mock.ExpectDel(sessionKeyPrefix + "unknown").SetVal(0)
	mock.ExpectSRem(tokensSetKey, "unknown").SetVal(0)

	loggedOut, err = authService.Logout(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, loggedOut)
}
