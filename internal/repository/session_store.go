package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/models"
)

// RedisSessionStore keeps one record per issued access token under
// access_token:<jti>, expiring with the session window, plus a per-user set
// of JTIs under user_tokens:<user_id> so logout can revoke everything the
// user holds in one pass.
type RedisSessionStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisSessionStore(client *redis.Client, logger *logrus.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		logger: logger,
	}
}

func tokenKey(jti string) string {
	return fmt.Sprintf("access_token:%s", jti)
}

func userTokensKey(userID string) string {
	return fmt.Sprintf("user_tokens:%s", userID)
}

func (s *RedisSessionStore) Save(ctx context.Context, rec *models.TokenRecord) error {
	dataJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	ttl := time.Until(rec.SessionExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, tokenKey(rec.JTI), dataJSON, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store token record")
		return fmt.Errorf("failed to store token record: %w", err)
	}

	if err := s.client.SAdd(ctx, userTokensKey(rec.UserID), rec.JTI).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to index token for user")
		return fmt.Errorf("failed to index token: %w", err)
	}
	// Keep the index alive at least as long as its newest member.
	s.client.Expire(ctx, userTokensKey(rec.UserID), ttl)

	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, jti string) (*models.TokenRecord, error) {
	dataJSON, err := s.client.Get(ctx, tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}

	var rec models.TokenRecord
	if err := json.Unmarshal([]byte(dataJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}
	return &rec, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, jti string) error {
	rec, err := s.Get(ctx, jti)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}

	rec.Revoked = true
	dataJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	ttl := time.Until(rec.SessionExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, tokenKey(jti), dataJSON, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to revoke token record")
		return fmt.Errorf("failed to revoke token record: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	jtis, err := s.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list user tokens: %w", err)
	}

	for _, jti := range jtis {
		if err := s.Revoke(ctx, jti); err != nil {
			return err
		}
	}

	if err := s.client.Del(ctx, userTokensKey(userID)).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to clear user token index")
	}
	return nil
}
