package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dmis/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	freshnessSummaryKey = "dmis:freshness:summary"
	refreshingKey       = "dmis:freshness:refreshing"
)

type CacheService interface {
	// Freshness summary caching
	GetFreshnessSummary(ctx context.Context) (*models.FreshnessSummary, error)
	SetFreshnessSummary(ctx context.Context, summary *models.FreshnessSummary, ttl time.Duration) error
	InvalidateFreshnessSummary(ctx context.Context) error

	// Refresh flag. MarkRefreshing reports false when a refresh is already pending.
	MarkRefreshing(ctx context.Context, ttl time.Duration) (bool, error)
	IsRefreshing(ctx context.Context) (bool, error)
	ClearRefreshing(ctx context.Context) error

	// Permission caching
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, bool, error)
	SetUserPermissions(ctx context.Context, userID uuid.UUID, permissions []string, ttl time.Duration) error
	InvalidateUserPermissions(ctx context.Context, userID uuid.UUID) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService accepts a bare host:port or a redis:// URL.
func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(pingErr))
	} else {
		logger.Debug("redis connection established", zap.String("addr", parsedAddr))
	}

	return &redisCacheService{client: client}
}

func permissionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("dmis:permissions:%s", userID.String())
}

func (r *redisCacheService) GetFreshnessSummary(ctx context.Context) (*models.FreshnessSummary, error) {
	data, err := r.client.Get(ctx, freshnessSummaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var summary models.FreshnessSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *redisCacheService) SetFreshnessSummary(ctx context.Context, summary *models.FreshnessSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, freshnessSummaryKey, data, ttl).Err()
}

func (r *redisCacheService) InvalidateFreshnessSummary(ctx context.Context) error {
	return r.client.Del(ctx, freshnessSummaryKey).Err()
}

func (r *redisCacheService) MarkRefreshing(ctx context.Context, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, refreshingKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (r *redisCacheService) IsRefreshing(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, refreshingKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisCacheService) ClearRefreshing(ctx context.Context) error {
	return r.client.Del(ctx, refreshingKey).Err()
}

func (r *redisCacheService) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, bool, error) {
	data, err := r.client.Get(ctx, permissionsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil, false, err
	}
	return perms, true, nil
}

func (r *redisCacheService) SetUserPermissions(ctx context.Context, userID uuid.UUID, permissions []string, ttl time.Duration) error {
	if permissions == nil {
		permissions = []string{}
	}
	data, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, permissionsKey(userID), data, ttl).Err()
}

func (r *redisCacheService) InvalidateUserPermissions(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, permissionsKey(userID)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
