package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/websocket"
)

// Ledger applies Stripe outcomes to registrations, installments and the
// organizer's Connect flags, and parks events that can not be applied.
type Ledger interface {
	ApplyPaymentSucceeded(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error)
	ApplyPaymentFailed(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error)
	ApplyRefund(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error)
	UpdateStripeAccountState(ctx context.Context, st domain.StripeAccountState) (string, error)
	InsertDeadLetter(ctx context.Context, dl domain.DeadLetter) error
}

type Requeuer interface {
	Retry(ctx context.Context, job engine.WebhookJob, delay time.Duration) (bool, error)
}

type Broadcaster interface {
	Broadcast(event websocket.DashboardEvent)
}

// Processor applies one Stripe event per job. Transient failures are
// requeued with exponential backoff; events that can never apply are
// parked in the dead letter table.
type Processor struct {
	ledger  Ledger
	queue   Requeuer
	hub     Broadcaster
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *slog.Logger
}

func NewProcessor(ledger Ledger, queue Requeuer, hub Broadcaster, m *metrics.Metrics, clk clock.Clock, logger *slog.Logger) *Processor {
	return &Processor{
		ledger:  ledger,
		queue:   queue,
		hub:     hub,
		metrics: m,
		clock:   clk,
		logger:  logger,
	}
}

var dashboardTypes = map[string]string{
	payments.EventPaymentSucceeded: "payment_succeeded",
	payments.EventPaymentFailed:    "payment_failed",
	payments.EventChargeRefunded:   "refund",
}

func (p *Processor) Process(ctx context.Context, job engine.WebhookJob) {
	log := p.logger.With("stripe_event_id", job.EventID, "type", job.Type, "attempt", job.Attempt)

	ev, err := payments.DecodeEvent(job.Payload)
	if err != nil {
		log.Error("dropping malformed stripe event", "error", err)
		p.metrics.WebhookProcessed(job.Type, "malformed")
		p.park(ctx, log, job, domain.DeadLetterMalformed, err)
		return
	}

	switch job.Type {
	case payments.EventPaymentSucceeded, payments.EventPaymentFailed, payments.EventChargeRefunded:
		pe, err := payments.PaymentEventFrom(ev)
		if err != nil {
			log.Error("dropping stripe event without payment reference", "error", err)
			p.metrics.WebhookProcessed(job.Type, "malformed")
			p.park(ctx, log, job, domain.DeadLetterMalformed, err)
			return
		}

		var res *domain.LedgerResult
		switch job.Type {
		case payments.EventPaymentSucceeded:
			res, err = p.ledger.ApplyPaymentSucceeded(ctx, pe)
		case payments.EventPaymentFailed:
			res, err = p.ledger.ApplyPaymentFailed(ctx, pe)
		default:
			res, err = p.ledger.ApplyRefund(ctx, pe)
		}
		if err != nil {
			p.fail(ctx, log, job, err, domain.ErrRegistrationNotFound)
			return
		}
		if !res.Applied {
			log.Info("stripe event already applied", "registration_id", res.RegistrationID)
			p.metrics.WebhookProcessed(job.Type, "duplicate")
			return
		}

		log.Info("stripe event applied",
			"organizer_id", res.OrganizerID,
			"registration_id", res.RegistrationID,
			"installment_id", res.InstallmentID,
			"payment_status", res.PaymentStatus,
		)
		p.metrics.WebhookProcessed(job.Type, "applied")
		p.hub.Broadcast(websocket.DashboardEvent{
			Type:           dashboardTypes[job.Type],
			OrganizerID:    res.OrganizerID,
			EventID:        res.EventID,
			RegistrationID: res.RegistrationID,
			InstallmentID:  res.InstallmentID,
			PaymentStatus:  string(res.PaymentStatus),
			Amount:         pe.Amount,
			Timestamp:      p.clock.Now(),
		})

	case payments.EventAccountUpdated:
		st, err := payments.AccountStateFrom(ev)
		if err != nil {
			log.Error("dropping malformed account event", "error", err)
			p.metrics.WebhookProcessed(job.Type, "malformed")
			p.park(ctx, log, job, domain.DeadLetterMalformed, err)
			return
		}
		organizerID, err := p.ledger.UpdateStripeAccountState(ctx, st)
		if err != nil {
			p.fail(ctx, log, job, err, domain.ErrOrganizerNotFound)
			return
		}

		log.Info("stripe account updated", "organizer_id", organizerID, "charges_enabled", st.ChargesEnabled)
		p.metrics.WebhookProcessed(job.Type, "applied")
		p.hub.Broadcast(websocket.DashboardEvent{
			Type:        "account_updated",
			OrganizerID: organizerID,
			Timestamp:   p.clock.Now(),
		})

	default:
		log.Debug("ignoring stripe event type")
		p.metrics.WebhookProcessed(job.Type, "ignored")
	}
}

// fail parks the job when err is the permanent sentinel or the attempts
// are used up, and requeues it otherwise.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, job engine.WebhookJob, err error, permanent error) {
	if errors.Is(err, permanent) {
		log.Warn("stripe event matches no record, dropping", "error", err)
		p.metrics.WebhookProcessed(job.Type, "unmatched")
		p.park(ctx, log, job, domain.DeadLetterUnmatched, err)
		return
	}

	delay := engine.RetryDelay(job.Attempt)
	requeued, rerr := p.queue.Retry(ctx, job, delay)
	switch {
	case rerr != nil:
		log.Error("failed to requeue stripe event", "error", err, "requeue_error", rerr)
		p.metrics.WebhookProcessed(job.Type, "lost")
		p.park(ctx, log, job, domain.DeadLetterExhausted, err)
	case !requeued:
		log.Error("stripe event dropped after max attempts", "error", err, "max_retries", job.MaxRetries)
		p.metrics.WebhookProcessed(job.Type, "exhausted")
		p.park(ctx, log, job, domain.DeadLetterExhausted, err)
	default:
		log.Warn("stripe event failed, retrying", "error", err, "retry_in", delay.String())
		p.metrics.WebhookProcessed(job.Type, "retrying")
	}
}

func (p *Processor) park(ctx context.Context, log *slog.Logger, job engine.WebhookJob, reason string, cause error) {
	dl := domain.DeadLetter{
		StripeEventID: job.EventID,
		EventType:     job.Type,
		Attempts:      job.Attempt,
		Reason:        reason,
		Payload:       job.Payload,
	}
	if job.Account != "" {
		dl.AccountID = &job.Account
	}
	if cause != nil {
		msg := cause.Error()
		dl.LastError = &msg
	}
	if !json.Valid(dl.Payload) {
		// Keep unparseable bodies as a JSON string.
		dl.Payload, _ = json.Marshal(string(job.Payload))
	}
	if err := p.ledger.InsertDeadLetter(ctx, dl); err != nil {
		log.Error("failed to park stripe event", "error", err, "reason", reason)
	}
}
