package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/Priya8975/event-console/internal/domain"
)

// MaxAmount is the largest price or charge the console accepts.
const MaxAmount = 9999999999.99

var (
	ErrInvalidAmount    = errors.New("amount must be a finite number between 0 and 9999999999.99")
	ErrInvalidFeeConfig = errors.New("invalid fee configuration")
	ErrInvalidFeeMode   = errors.New("invalid service fee type")
)

// FeeConfig holds the percentages (5 = 5%) and fixed fee used to split a
// ticket price.
type FeeConfig struct {
	PlatformFeePercentage float64 `json:"platform_fee_percentage"`
	StripePercentageFee   float64 `json:"stripe_percentage_fee"`
	StripeFixedFee        float64 `json:"stripe_fixed_fee"`
}

// DefaultFeeConfig is used when no configuration overrides it.
var DefaultFeeConfig = FeeConfig{
	PlatformFeePercentage: 5,
	StripePercentageFee:   4.35,
	StripeFixedFee:        0.50,
}

// Validate rejects negative or non-finite values and a Stripe percentage that
// would leave nothing of the charge.
func (c FeeConfig) Validate() error {
	for name, v := range map[string]float64{
		"platform_fee_percentage": c.PlatformFeePercentage,
		"stripe_percentage_fee":   c.StripePercentageFee,
		"stripe_fixed_fee":        c.StripeFixedFee,
	} {
		if !finiteNonNegative(v) {
			return fmt.Errorf("%w: %s must be a finite, non-negative number", ErrInvalidFeeConfig, name)
		}
	}
	if c.StripePercentageFee >= 100 {
		return fmt.Errorf("%w: stripe_percentage_fee must be below 100", ErrInvalidFeeConfig)
	}
	return nil
}

// FeeBreakdown is every monetary component of a single ticket sale, rounded
// to cents.
type FeeBreakdown struct {
	TicketPrice       float64        `json:"ticket_price"`
	Mode              domain.FeeMode `json:"service_fee_type"`
	ConvenienceFee    float64        `json:"convenience_fee"`
	BuyerPrice        float64        `json:"buyer_price"`
	StripeFee         float64        `json:"stripe_fee"`
	PlatformFee       float64        `json:"platform_fee"`
	OrganizerReceives float64        `json:"organizer_receives"`
}

// FeePercentage is the surcharge rate, in percent of the ticket price, that
// covers the Stripe cut on the total charged plus the platform fee.
func FeePercentage(cfg FeeConfig) float64 {
	return (cfg.StripePercentageFee + cfg.PlatformFeePercentage) / (1 - cfg.StripePercentageFee/100)
}

// Calculate splits price into buyer price, Stripe fee, platform fee and
// organizer payout. A zero price is always treated as absorbed with no fees.
func Calculate(price float64, mode domain.FeeMode, cfg FeeConfig) (FeeBreakdown, error) {
	if !finiteNonNegative(price) || price > MaxAmount {
		return FeeBreakdown{}, ErrInvalidAmount
	}
	if err := cfg.Validate(); err != nil {
		return FeeBreakdown{}, err
	}
	if !mode.Valid() {
		return FeeBreakdown{}, fmt.Errorf("%w: %q", ErrInvalidFeeMode, mode)
	}

	if price == 0 {
		return FeeBreakdown{Mode: domain.FeeModeAbsorbed}, nil
	}

	var convenience float64
	if mode == domain.FeeModePassedToBuyer {
		convenience = Round2(price * FeePercentage(cfg) / 100)
	}
	buyer := price + convenience
	stripeFee := buyer*cfg.StripePercentageFee/100 + cfg.StripeFixedFee
	platformFee := price * cfg.PlatformFeePercentage / 100

	b := FeeBreakdown{
		TicketPrice:       Round2(price),
		Mode:              mode,
		ConvenienceFee:    convenience,
		BuyerPrice:        Round2(buyer),
		StripeFee:         Round2(stripeFee),
		PlatformFee:       Round2(platformFee),
		OrganizerReceives: Round2(buyer - stripeFee - platformFee),
	}
	// Huge prices or fee rates can push the surcharge past the cap or to +Inf.
	for _, v := range []float64{b.ConvenienceFee, b.BuyerPrice, b.StripeFee, b.PlatformFee, b.OrganizerReceives} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeeBreakdown{}, ErrInvalidAmount
		}
	}
	if b.BuyerPrice > MaxAmount {
		return FeeBreakdown{}, fmt.Errorf("%w: buyer price %.2f exceeds the limit", ErrInvalidAmount, b.BuyerPrice)
	}
	return b, nil
}

// BuyerPrice is the amount charged to the buyer for one unit.
func BuyerPrice(price float64, mode domain.FeeMode, cfg FeeConfig) (float64, error) {
	b, err := Calculate(price, mode, cfg)
	if err != nil {
		return 0, err
	}
	return b.BuyerPrice, nil
}

// ConvenienceFeePercentage is the convenience fee of price expressed as a
// percentage of price, rounded to two decimals. It is zero for free tickets.
func ConvenienceFeePercentage(price float64, cfg FeeConfig) (float64, error) {
	if !finiteNonNegative(price) || price > MaxAmount {
		return 0, ErrInvalidAmount
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if Round2(price) == 0 {
		return 0, nil
	}
	return Round2(Round2(price*FeePercentage(cfg)/100) / price * 100), nil
}

// Round2 rounds to cents, halves away from zero. The nudge keeps values such
// as 1.005 from rounding down because of their binary representation.
func Round2(v float64) float64 {
	return math.Round(v*100+math.Copysign(1e-9, v)) / 100
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
