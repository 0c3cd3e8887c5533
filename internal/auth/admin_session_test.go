package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type AdminSessionStoreSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	store *RedisAdminSessions
	now   time.Time
	ctx   context.Context
}

func TestAdminSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(AdminSessionStoreSuite))
}

func (s *AdminSessionStoreSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	s.store = NewRedisAdminSessions(s.rdb, time.Hour).WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *AdminSessionStoreSuite) TearDownTest() {
	_ = s.rdb.Close()
	s.mr.Close()
}

func (s *AdminSessionStoreSuite) TestCreateIssuesUnguessableToken() {
	a, err := s.store.Create(s.ctx, AdminIdentity{ID: 7, Email: "root@academy.test"}, "10.0.0.1", "curl/8")
	s.Require().NoError(err)
	b, err := s.store.Create(s.ctx, AdminIdentity{ID: 7, Email: "root@academy.test"}, "10.0.0.1", "curl/8")
	s.Require().NoError(err)

	s.Len(a.Token, 64, "32 random bytes hex encoded")
	s.NotEqual(a.Token, b.Token)
	s.Equal(s.now.Add(time.Hour), a.ExpiresAt)
	s.Equal("10.0.0.1", a.IPAddress)
	s.Equal("curl/8", a.UserAgent)

	// raw tokens are never used as keys
	for _, k := range s.mr.Keys() {
		s.False(strings.Contains(k, a.Token))
	}
}

func (s *AdminSessionStoreSuite) TestValidate() {
	created, err := s.store.Create(s.ctx, AdminIdentity{ID: 3, Email: "ops@academy.test"}, "", "")
	s.Require().NoError(err)

	s.Run("valid before expiry", func() {
		got, err := s.store.Validate(s.ctx, created.Token)
		s.Require().NoError(err)
		s.Equal(uint64(3), got.AdminID)
		s.Equal("ops@academy.test", got.Email)
		s.Equal(created.Token, got.Token)
	})

	s.Run("unknown token", func() {
		_, err := s.store.Validate(s.ctx, "deadbeef")
		s.ErrorIs(err, ErrAdminSessionNotFound)
	})

	s.Run("empty token", func() {
		_, err := s.store.Validate(s.ctx, "")
		s.ErrorIs(err, ErrAdminSessionNotFound)
	})

	s.Run("expired exactly at expiresAt and lazily deleted", func() {
		s.now = created.ExpiresAt
		_, err := s.store.Validate(s.ctx, created.Token)
		s.ErrorIs(err, ErrAdminSessionExpired)

		_, err = s.store.Validate(s.ctx, created.Token)
		s.ErrorIs(err, ErrAdminSessionNotFound)
	})
}

func (s *AdminSessionStoreSuite) TestRedisExpiryReapsRows() {
	created, err := s.store.Create(s.ctx, AdminIdentity{ID: 1}, "", "")
	s.Require().NoError(err)

	s.mr.FastForward(time.Hour + expiredGrace + time.Second)

	_, err = s.store.Validate(s.ctx, created.Token)
	s.ErrorIs(err, ErrAdminSessionNotFound)
}

func (s *AdminSessionStoreSuite) TestRevokeIsIdempotent() {
	created, err := s.store.Create(s.ctx, AdminIdentity{ID: 1}, "", "")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Revoke(s.ctx, created.Token))
	s.Require().NoError(s.store.Revoke(s.ctx, created.Token))
	s.Require().NoError(s.store.Revoke(s.ctx, "never-issued"))
	s.Require().NoError(s.store.Revoke(s.ctx, ""))

	_, err = s.store.Validate(s.ctx, created.Token)
	s.ErrorIs(err, ErrAdminSessionNotFound)
}

func (s *AdminSessionStoreSuite) TestCorruptRowIsNotFound() {
	s.Require().NoError(s.rdb.Set(s.ctx, adminSessionKey("tok"), "{not json", time.Minute).Err())
	_, err := s.store.Validate(s.ctx, "tok")
	s.ErrorIs(err, ErrAdminSessionNotFound)
	s.False(s.mr.Exists(adminSessionKey("tok")))
}

func (s *AdminSessionStoreSuite) TestInfrastructureErrorIsWrapped() {
	s.mr.Close()
	_, err := s.store.Validate(s.ctx, "anything")
	s.Require().Error(err)
	s.NotErrorIs(err, ErrAdminSessionNotFound)
	s.NotErrorIs(err, ErrAdminSessionExpired)
	s.mr, _ = miniredis.Run() // keep TearDownTest happy
}
