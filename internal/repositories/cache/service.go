package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kobo/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService is a Redis-backed read cache. Only wallet reads go through
// it; every balance mutation invalidates the cached wallet so the database
// stays the single source of truth.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func walletKey(walletID uint) string {
	return fmt.Sprintf("wallet:%d", walletID)
}

func (s *CacheService) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	val, err := s.client.Get(ctx, walletKey(walletID)).Bytes()
	if err != nil {
		return nil, err
	}

	var wallet models.Wallet
	if err := json.Unmarshal(val, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *CacheService) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, walletKey(wallet.ID), data, s.ttl).Err()
}

func (s *CacheService) InvalidateWallet(ctx context.Context, walletID uint) error {
	return s.client.Del(ctx, walletKey(walletID)).Err()
}

func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
