package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/utils"
)

const (
	adminSessionKeyPrefix = "admin_session:"

	// DefaultAdminSessionTTL is used when the configured TTL is not positive.
	DefaultAdminSessionTTL = 8 * time.Hour

	// expiredGrace keeps expired rows in Redis a little longer than their
	// TTL so Validate can report Expired instead of NotFound.  Redis expiry
	// then reaps them.
	expiredGrace = time.Hour

	adminTokenBytes = 32
)

var (
	// ErrAdminSessionNotFound is returned for unknown or revoked tokens.
	ErrAdminSessionNotFound = errors.New("admin session not found")
	// ErrAdminSessionExpired is returned for tokens past their expiry.
	ErrAdminSessionExpired = errors.New("admin session expired")
)

// AdminIdentity is what the login handler knows about the admin when it
// opens a session.
type AdminIdentity struct {
	ID    uint64
	Email string
}

// AdminSessionStore is the contract of the admin session mechanism.
// Validate returns ErrAdminSessionNotFound, ErrAdminSessionExpired or a
// wrapped infrastructure error.
type AdminSessionStore interface {
	Create(ctx context.Context, admin AdminIdentity, ip, userAgent string) (model.AdminSession, error)
	Validate(ctx context.Context, token string) (model.AdminSession, error)
	Revoke(ctx context.Context, token string) error
}

// RedisAdminSessions stores admin sessions in Redis under the SHA-256 of
// the token, so a Redis dump does not leak usable tokens.
type RedisAdminSessions struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisAdminSessions constructs the Redis-backed admin session store.
func NewRedisAdminSessions(client *redis.Client, ttl time.Duration) *RedisAdminSessions {
	if ttl <= 0 {
		ttl = DefaultAdminSessionTTL
	}
	return &RedisAdminSessions{client: client, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (s *RedisAdminSessions) WithClock(now func() time.Time) *RedisAdminSessions {
	s.now = now
	return s
}

func adminSessionKey(token string) string {
	return adminSessionKeyPrefix + utils.HashToken(token)
}

// Create issues a new random token and persists the session.
func (s *RedisAdminSessions) Create(ctx context.Context, admin AdminIdentity, ip, userAgent string) (model.AdminSession, error) {
	token, err := utils.RandomHex(adminTokenBytes)
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("generate admin token: %w", err)
	}
	now := s.now().UTC()
	sess := model.AdminSession{
		Token:     token,
		AdminID:   admin.ID,
		Email:     admin.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("marshal admin session: %w", err)
	}
	if err := s.client.Set(ctx, adminSessionKey(token), payload, s.ttl+expiredGrace).Err(); err != nil {
		return model.AdminSession{}, fmt.Errorf("store admin session: %w", err)
	}
	return sess, nil
}

// Validate looks the token up.  Expired sessions are deleted lazily.
func (s *RedisAdminSessions) Validate(ctx context.Context, token string) (model.AdminSession, error) {
	if token == "" {
		return model.AdminSession{}, ErrAdminSessionNotFound
	}
	key := adminSessionKey(token)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AdminSession{}, ErrAdminSessionNotFound
	}
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("load admin session: %w", err)
	}
	var sess model.AdminSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt row can never become valid again.
		_ = s.client.Del(ctx, key).Err()
		return model.AdminSession{}, ErrAdminSessionNotFound
	}
	sess.Token = token
	if !sess.ValidAt(s.now()) {
		_ = s.client.Del(ctx, key).Err()
		return model.AdminSession{}, ErrAdminSessionExpired
	}
	return sess, nil
}

// Revoke deletes the session.  Unknown tokens are not an error.
func (s *RedisAdminSessions) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, adminSessionKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke admin session: %w", err)
	}
	return nil
}
