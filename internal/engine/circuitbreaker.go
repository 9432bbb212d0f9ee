package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker counts consecutive failures of an upstream dependency in
// Redis so every server instance trips together.
// State transitions: closed → open → half-open → closed
//
// - Closed: calls go through and failures are counted.
// - Open: calls fail fast until the cooldown has passed.
// - Half-Open: one probe call is let through. Success closes, failure re-opens.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	now              func() time.Time
}

// CircuitState is a snapshot of one dependency's circuit.
type CircuitState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, threshold int, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: threshold,
		cooldownPeriod:   cooldown,
		now:              time.Now,
	}
}

func cbKey(name string) string {
	return fmt.Sprintf("cb:%s", name)
}

func (cb *CircuitBreaker) cooledDown(lastFailedAt int64) bool {
	return cb.now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds())
}

// AllowRequest reports the circuit state for name and whether a call may
// proceed. Redis errors fail open.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, name string) (string, bool) {
	key := cbKey(name)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return StateClosed, true
	}

	switch data["state"] {
	case StateOpen:
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if !cb.cooledDown(lastFailedAt) {
			return StateOpen, false
		}
		// Only the instance that wins the probe slot calls upstream.
		won, err := cb.redisClient.HSetNX(ctx, key, "probe", cb.now().Unix()).Result()
		if err != nil || !won {
			return StateOpen, false
		}
		cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
		cb.logger.Info("circuit breaker half-open", "dependency", name)
		return StateHalfOpen, true

	case StateHalfOpen:
		// A probe that never reported back frees its slot after a cooldown.
		probeAt, _ := strconv.ParseInt(data["probe"], 10, 64)
		if !cb.cooledDown(probeAt) {
			return StateHalfOpen, false
		}
		cb.redisClient.HSet(ctx, key, "probe", cb.now().Unix())
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, name string) {
	key := cbKey(name)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	cb.redisClient.HSet(ctx, key,
		"state", StateClosed,
		"failures", 0,
	)
	cb.redisClient.HDel(ctx, key, "probe")

	if state == StateHalfOpen {
		cb.logger.Info("circuit breaker closed (recovered)", "dependency", name)
	}
}

// RecordFailure counts a failed call and opens the circuit at the threshold
// or when a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, name string) {
	key := cbKey(name)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record circuit breaker failure", "error", err)
		return
	}

	cb.redisClient.HSet(ctx, key, "last_failed_at", cb.now().Unix())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	switch {
	case state == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.redisClient.HDel(ctx, key, "probe")
		cb.logger.Warn("circuit breaker re-opened (probe failed)", "dependency", name)
	case failures >= int64(cb.failureThreshold) && state != StateOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker opened",
			"dependency", name,
			"failures", failures,
			"threshold", cb.failureThreshold,
		)
	case state == "":
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// State returns the circuit for name. An open circuit past its cooldown is
// reported as half-open.
func (cb *CircuitBreaker) State(ctx context.Context, name string) CircuitState {
	data, err := cb.redisClient.HGetAll(ctx, cbKey(name)).Result()
	if err != nil || len(data) == 0 {
		return CircuitState{State: StateClosed}
	}

	failures, _ := strconv.Atoi(data["failures"])
	lastFailed, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
	state := data["state"]
	if state == "" {
		state = StateClosed
	}
	if state == StateOpen && cb.cooledDown(lastFailed) {
		state = StateHalfOpen
	}

	result := CircuitState{State: state, Failures: failures}
	if lastFailed > 0 {
		result.LastFailedAt = time.Unix(lastFailed, 0).UTC().Format(time.RFC3339)
	}
	return result
}
