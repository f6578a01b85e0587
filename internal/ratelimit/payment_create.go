package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/residify/residify/internal/config"
)

const keyPaymentCreate = "payment:create:%s"

// PaymentCreateLimiter throttles checkout-session creation per caller. Every
// create hits the bank, so an unthrottled client could burn through session
// quota. Disabled (nil) when no redis address is configured; a nil limiter
// allows everything.
type PaymentCreateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewPaymentCreateLimiter(cfg config.Config) *PaymentCreateLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	if cfg.PaymentCreateRate <= 0 || cfg.PaymentCreateBurst <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &PaymentCreateLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.PaymentCreateRate,
		burst:  cfg.PaymentCreateBurst,
	}
}

func (l *PaymentCreateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether the caller identified by key may open another
// checkout session right now. Redis errors fail open: a degraded limiter
// must not take payments down with it.
func (l *PaymentCreateLimiter) Allow(ctx context.Context, key string) bool {
	if !l.Enabled() {
		return true
	}
	allowed, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPaymentCreate, strings.TrimSpace(key)), l.rate, l.burst)
	if err != nil {
		return true
	}
	return allowed
}
