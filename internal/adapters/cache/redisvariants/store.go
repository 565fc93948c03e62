package redisvariants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/phenrril/orderdesk/internal/domain"
)

const DefaultTTL = 10 * time.Minute

// Store keeps variant lists under "variants:<productId>" as JSON.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func New(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// NewClient opens a client for addr. It does not dial until first use.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func key(productID uuid.UUID) string { return "variants:" + productID.String() }

func (s *Store) Get(ctx context.Context, productID uuid.UUID) ([]domain.Variant, bool, error) {
	raw, err := s.rdb.Get(ctx, key(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var list []domain.Variant
	if err := json.Unmarshal(raw, &list); err != nil {
		// Treat a corrupt entry as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return list, true, nil
}

func (s *Store) Set(ctx context.Context, productID uuid.UUID, variants []domain.Variant) error {
	if variants == nil {
		variants = []domain.Variant{}
	}
	raw, err := json.Marshal(variants)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(productID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if err := s.rdb.Del(ctx, key(productID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
