package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
	EventAccountUpdated   = "account.updated"
)

var ErrInvalidSignature = errors.New("invalid stripe signature")

// VerifyWebhook checks the Stripe-Signature header against the endpoint
// secret and decodes the event.
func VerifyWebhook(payload []byte, header, secret string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ev, nil
}

// Sign builds a Stripe-Signature header for payload, used by the local
// webhook sender and tests.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	signed := fmt.Sprintf("%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, computeHMAC([]byte(signed), secret))
}

func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// DecodeEvent parses a stored event payload.
func DecodeEvent(payload []byte) (stripe.Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return stripe.Event{}, fmt.Errorf("decoding stripe event: %w", err)
	}
	if ev.Data == nil {
		return stripe.Event{}, errors.New("decoding stripe event: missing data")
	}
	return ev, nil
}

// PaymentEventFrom extracts what the ledger needs from a payment intent or
// charge event.
func PaymentEventFrom(ev stripe.Event) (domain.PaymentEvent, error) {
	out := domain.PaymentEvent{
		StripeEventID: ev.ID,
		OccurredAt:    time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Created == 0 {
		out.OccurredAt = time.Now().UTC()
	}

	switch ev.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("decoding payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.Amount = FromCents(pi.Amount)
		if pi.AmountReceived > 0 {
			out.Amount = FromCents(pi.AmountReceived)
		}
		out.RegistrationID = pi.Metadata["registration_id"]
		out.InstallmentID = pi.Metadata["installment_id"]

	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return out, fmt.Errorf("decoding charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.Amount = FromCents(ch.AmountRefunded)
		out.RegistrationID = ch.Metadata["registration_id"]
		out.InstallmentID = ch.Metadata["installment_id"]

	default:
		return out, fmt.Errorf("unsupported payment event type %q", ev.Type)
	}

	if out.PaymentIntentID == "" && out.RegistrationID == "" && out.InstallmentID == "" {
		return out, errors.New("payment event carries no intent or registration reference")
	}
	return out, nil
}

// AccountStateFrom reads the connected account flags of an account.updated
// event.
func AccountStateFrom(ev stripe.Event) (domain.StripeAccountState, error) {
	var acct stripe.Account
	if err := json.Unmarshal(ev.Data.Raw, &acct); err != nil {
		return domain.StripeAccountState{}, fmt.Errorf("decoding account: %w", err)
	}
	if acct.ID == "" {
		return domain.StripeAccountState{}, errors.New("account event without id")
	}
	return domain.StripeAccountState{
		AccountID:        acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}
