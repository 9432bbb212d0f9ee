package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/Priya8975/event-console/internal/engine"
	"github.com/redis/go-redis/v9"
)

// Dispatcher continuously polls the Redis webhook queue and sends ready
// jobs to the worker pool.
type Dispatcher struct {
	redisClient  *redis.Client
	pool         *Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
	onDepth      func(int64)
}

// NewDispatcher creates a dispatcher that pulls from the Redis sorted set.
// onDepth, when set, receives the queue depth after every poll.
func NewDispatcher(redisClient *redis.Client, pool *Pool, logger *slog.Logger, onDepth func(int64)) *Dispatcher {
	return &Dispatcher{
		redisClient:  redisClient,
		pool:         pool,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		batchSize:    10,
		onDepth:      onDepth,
	}
}

// Start begins the polling loop. It runs until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll fetches a batch of ready jobs from Redis and sends them to workers.
func (d *Dispatcher) poll(ctx context.Context) {
	now := float64(time.Now().UnixMicro())

	results, err := d.redisClient.ZRangeByScore(ctx, engine.WebhookQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(now, 'f', -1, 64),
		Count: d.batchSize,
	}).Result()
	if err != nil {
		d.logger.Error("failed to poll webhook queue", "error", err)
		return
	}

	for _, member := range results {
		// Another instance may have claimed it between the read and here.
		removed, err := d.redisClient.ZRem(ctx, engine.WebhookQueueKey, member).Result()
		if err != nil {
			d.logger.Error("failed to remove job from queue", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job engine.WebhookJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("failed to unmarshal webhook job", "error", err)
			continue
		}

		d.pool.Submit(job)
	}

	if d.onDepth != nil {
		if n, err := d.redisClient.ZCard(ctx, engine.WebhookQueueKey).Result(); err == nil {
			d.onDepth(n)
		}
	}
}
