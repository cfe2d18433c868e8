package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPending keeps parked orders in one redis hash keyed by payment intent
// id, so they survive a restart of the shopper process.
type RedisPending struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisPending(client *redis.Client, userID string) *RedisPending {
	return &RedisPending{
		client:  client,
		key:     "storefront:pending_orders:" + userID,
		timeout: 3 * time.Second,
	}
}

func (r *RedisPending) Put(p PendingOrder) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.HSet(ctx, r.key, p.Draft.PaymentIntentID, data).Err()
}

// List returns parked orders oldest first.
func (r *RedisPending) List() ([]PendingOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]PendingOrder, 0, len(raw))
	for id, v := range raw {
		var p PendingOrder
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("decode pending order %s: %w", id, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Draft.CreatedAt.Before(out[j].Draft.CreatedAt)
	})
	return out, nil
}

func (r *RedisPending) Delete(paymentIntentID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.HDel(ctx, r.key, paymentIntentID).Err()
}
