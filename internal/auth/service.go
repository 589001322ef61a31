package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stridecoach/stridecoach/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	tokenIssuer      = "stridecoach"
	sessionKeyPrefix = "stride-service-session||"
	tokensSetKey     = "stride-service-sessions"
)

var (
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidToken     = errors.New("invalid token")
)

type usersRepo interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Service issues and verifies capability tokens. A token is a signed JWT
// carrying the user id; issued tokens are additionally kept in a redis
// allow-list so that logout actually revokes them before expiry.
type Service struct {
	users       usersRepo
	secret      []byte
	ttl         time.Duration
	redisClient *redis.Client
}

func NewService(users usersRepo, secret []byte, ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		users:       users,
		secret:      secret,
		ttl:         ttl,
		redisClient: redisClient,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrWrongCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrWrongCredentials
	}

	tokenID, err := pkg.GenerateRandomString(16)
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Issuer:    tokenIssuer,
		Subject:   strconv.Itoa(user.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, sessionKey, user.ID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	// add token to the list of sessions, for ScanAndClean
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}

	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	removed, err := s.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return false, err
	}

	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, err
	}

	return removed > 0, nil
}

// Verify checks the token signature and expiry, and that the token is
// still on the allow-list, and returns the user id it was issued for.
func (s *Service) Verify(ctx context.Context, token string) (int, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, ErrInvalidToken
	}

	sessionKey := sessionKeyPrefix + token
	storedUserID, err := s.redisClient.Get(ctx, sessionKey).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("check session: %w", err)
	}
	if storedUserID != userID {
		return 0, ErrInvalidToken
	}

	return userID, nil
}

// ScanAndClean runs through the sessions set and drops tokens whose
// session keys have already expired.
func (s *Service) ScanAndClean(ctx context.Context) {
	tokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return
	}

	if len(tokens) == 0 {
		return
	}

	log.Debugf("auth service, scan and clean [%d sessions] start ...", len(tokens))
	for _, token := range tokens {
		sessionKey := sessionKeyPrefix + token
		exists, err := s.redisClient.Exists(ctx, sessionKey).Result()
		if err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			continue
		}
		if exists == 0 {
			if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
				log.Errorf("auth service, clean token %s: %s", token, err)
			}
		}
	}
}
