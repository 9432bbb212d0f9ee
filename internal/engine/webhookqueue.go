package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	WebhookQueueKey   = "stripe_webhook_queue"
	webhookSeenPrefix = "stripe_evt:"
	defaultMaxRetries = 3
	defaultSeenTTL    = 72 * time.Hour
)

// WebhookJob is a verified Stripe event waiting to be applied.
type WebhookJob struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	Account    string          `json:"account,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	MaxRetries int             `json:"max_retries"`
	ReceivedAt time.Time       `json:"received_at"`
}

// WebhookQueue stores Stripe events in a Redis sorted set scored by the
// time they become ready, so retries can be scheduled in the future.
type WebhookQueue struct {
	client  *redis.Client
	logger  *slog.Logger
	seenTTL time.Duration
	now     func() time.Time
}

func NewWebhookQueue(client *redis.Client, logger *slog.Logger) *WebhookQueue {
	return &WebhookQueue{
		client:  client,
		logger:  logger,
		seenTTL: defaultSeenTTL,
		now:     time.Now,
	}
}

// Enqueue queues a newly received event. Stripe redelivers events, so an
// event id already seen within the dedupe window is skipped and reported
// as false.
func (q *WebhookQueue) Enqueue(ctx context.Context, job WebhookJob) (bool, error) {
	fresh, err := q.client.SetNX(ctx, webhookSeenPrefix+job.EventID, 1, q.seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("marking webhook event seen: %w", err)
	}
	if !fresh {
		q.logger.Info("duplicate stripe event skipped", "stripe_event_id", job.EventID, "type", job.Type)
		return false, nil
	}

	if job.Attempt == 0 {
		job.Attempt = 1
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = q.now()
	}

	if err := q.push(ctx, job, q.now()); err != nil {
		// Let Stripe's redelivery try again.
		q.client.Del(ctx, webhookSeenPrefix+job.EventID)
		return false, err
	}

	q.logger.Info("stripe event queued", "stripe_event_id", job.EventID, "type", job.Type)
	return true, nil
}

// Retry requeues job with its attempt counter bumped, ready after delay.
// It reports false once the job has used all its attempts.
func (q *WebhookQueue) Retry(ctx context.Context, job WebhookJob, delay time.Duration) (bool, error) {
	if job.Attempt >= job.MaxRetries {
		return false, nil
	}
	job.Attempt++
	if err := q.push(ctx, job, q.now().Add(delay)); err != nil {
		return false, err
	}
	return true, nil
}

// Depth returns the number of events waiting, including scheduled retries.
func (q *WebhookQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, WebhookQueueKey).Result()
}

func (q *WebhookQueue) push(ctx context.Context, job WebhookJob, readyAt time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling webhook job: %w", err)
	}
	err = q.client.ZAdd(ctx, WebhookQueueKey, redis.Z{
		Score:  float64(readyAt.UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing webhook job: %w", err)
	}
	return nil
}

// RetryDelay is the backoff before attempt n+1: 2s, 4s, 8s...
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<attempt) * time.Second
}
