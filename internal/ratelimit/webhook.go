package ratelimit

import (
	"context"
	"time"
)

const (
	defaultWebhookRate  = 20.0
	defaultWebhookBurst = 60
)

// WebhookLimiter throttles gateway notification ingestion per provider. A nil
// limiter (no redis configured) allows everything, and redis failures fail
// open so a cache outage cannot drop payment notifications.
type WebhookLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWebhookLimiter(bucket *TokenBucket) *WebhookLimiter {
	if bucket == nil {
		return nil
	}
	return &WebhookLimiter{
		bucket: bucket,
		rate:   defaultWebhookRate,
		burst:  defaultWebhookBurst,
	}
}

func (l *WebhookLimiter) Allow(ctx context.Context, provider string) (bool, time.Duration) {
	if l == nil || l.bucket == nil {
		return true, 0
	}
	res, err := l.bucket.Allow(ctx, "ratelimit:webhook:"+provider, l.rate, l.burst)
	if err != nil {
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
