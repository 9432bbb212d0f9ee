package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/smartystreets/goconvey/convey"
)

func TestCalculate(t *testing.T) {
	cfg := DefaultFeeConfig

	convey.Convey("Given the default fee configuration", t, func() {
		convey.Convey("When the organizer absorbs the fees", func() {
			b, err := Calculate(100, domain.FeeModeAbsorbed, cfg)

			convey.Convey("Then the buyer pays the ticket price and fees come out of it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(b.BuyerPrice, convey.ShouldEqual, 100)
				convey.So(b.ConvenienceFee, convey.ShouldEqual, 0)
				convey.So(b.StripeFee, convey.ShouldEqual, 4.85)
				convey.So(b.PlatformFee, convey.ShouldEqual, 5)
				convey.So(b.OrganizerReceives, convey.ShouldEqual, 90.15)
			})
		})

		convey.Convey("When the fee is passed to the buyer", func() {
			b, err := Calculate(100, domain.FeeModePassedToBuyer, cfg)

			convey.Convey("Then the buyer covers the Stripe cut and the platform fee", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(b.ConvenienceFee, convey.ShouldEqual, 9.78)
				convey.So(b.BuyerPrice, convey.ShouldEqual, 109.78)
				convey.So(b.StripeFee, convey.ShouldEqual, 5.28)
				convey.So(b.PlatformFee, convey.ShouldEqual, 5)
				convey.So(b.OrganizerReceives, convey.ShouldEqual, 99.5)
			})
		})

		convey.Convey("When the ticket is free", func() {
			b, err := Calculate(0, domain.FeeModePassedToBuyer, cfg)

			convey.Convey("Then the mode is forced to absorbed and every fee is zero", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(b.Mode, convey.ShouldEqual, domain.FeeModeAbsorbed)
				convey.So(b, convey.ShouldResemble, FeeBreakdown{Mode: domain.FeeModeAbsorbed})
			})
		})
	})
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		mode  domain.FeeMode
		cfg   FeeConfig
	}{
		{"negative price", -1, domain.FeeModeAbsorbed, DefaultFeeConfig},
		{"nan price", math.NaN(), domain.FeeModeAbsorbed, DefaultFeeConfig},
		{"infinite price", math.Inf(1), domain.FeeModeAbsorbed, DefaultFeeConfig},
		{"price overflows buyer price", 1e307, domain.FeeModePassedToBuyer, DefaultFeeConfig},
		{"price above limit", MaxAmount + 1, domain.FeeModeAbsorbed, DefaultFeeConfig},
		{"surcharge pushes buyer over limit", MaxAmount, domain.FeeModePassedToBuyer, DefaultFeeConfig},
		{"huge platform rate", 1e6, domain.FeeModePassedToBuyer, FeeConfig{PlatformFeePercentage: math.MaxFloat64}},
		{"unknown mode", 10, "split", DefaultFeeConfig},
		{"negative platform fee", 10, domain.FeeModeAbsorbed, FeeConfig{PlatformFeePercentage: -1}},
		{"stripe at 100 percent", 10, domain.FeeModePassedToBuyer, FeeConfig{StripePercentageFee: 100}},
		{"nan fixed fee", 10, domain.FeeModeAbsorbed, FeeConfig{StripeFixedFee: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Calculate(tt.price, tt.mode, tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCalculate_AmountLimit(t *testing.T) {
	b, err := Calculate(MaxAmount, domain.FeeModeAbsorbed, DefaultFeeConfig)
	if err != nil {
		t.Fatalf("absorbed at the limit: %v", err)
	}
	if b.BuyerPrice != MaxAmount {
		t.Errorf("buyer price = %v, want %v", b.BuyerPrice, MaxAmount)
	}

	for _, price := range []float64{1e307, math.MaxFloat64} {
		_, err := Calculate(price, domain.FeeModePassedToBuyer, DefaultFeeConfig)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Calculate(%v): expected ErrInvalidAmount, got %v", price, err)
		}
		if _, err := BuyerPrice(price, domain.FeeModePassedToBuyer, DefaultFeeConfig); err == nil {
			t.Errorf("BuyerPrice(%v): expected an error", price)
		}
	}
}

func TestCalculate_AbsorbedConservesPrice(t *testing.T) {
	for _, price := range []float64{0.5, 1, 9.99, 25, 100, 349.9, 1250} {
		b, err := Calculate(price, domain.FeeModeAbsorbed, DefaultFeeConfig)
		if err != nil {
			t.Fatalf("price %v: %v", price, err)
		}
		sum := b.OrganizerReceives + b.StripeFee + b.PlatformFee
		if math.Abs(sum-b.BuyerPrice) > 0.011 || b.BuyerPrice != Round2(price) {
			t.Errorf("price %v: parts sum to %v, buyer price %v", price, sum, b.BuyerPrice)
		}
	}
}

func TestCalculate_PassedToBuyerBounds(t *testing.T) {
	for _, price := range []float64{10, 25, 50, 100, 349.9, 1250} {
		b, err := Calculate(price, domain.FeeModePassedToBuyer, DefaultFeeConfig)
		if err != nil {
			t.Fatalf("price %v: %v", price, err)
		}
		low := price - b.PlatformFee - 0.02
		if b.OrganizerReceives < low || b.OrganizerReceives > price+0.02 {
			t.Errorf("price %v: organizer receives %v outside [%v, %v]", price, b.OrganizerReceives, low, price)
		}
		want := price - DefaultFeeConfig.StripeFixedFee
		if math.Abs(b.OrganizerReceives-want) > 0.02 {
			t.Errorf("price %v: organizer receives %v, want about %v", price, b.OrganizerReceives, want)
		}
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	for _, mode := range []domain.FeeMode{domain.FeeModeAbsorbed, domain.FeeModePassedToBuyer} {
		var prev FeeBreakdown
		for price := 1.0; price <= 500; price++ {
			b, err := Calculate(price, mode, DefaultFeeConfig)
			if err != nil {
				t.Fatalf("%s price %v: %v", mode, price, err)
			}
			if price > 1 && (b.BuyerPrice <= prev.BuyerPrice || b.OrganizerReceives <= prev.OrganizerReceives) {
				t.Fatalf("%s: price %v did not increase buyer/organizer amounts (%+v after %+v)", mode, price, b, prev)
			}
			prev = b
		}
	}
}

func TestBuyerPriceAndPercentage(t *testing.T) {
	p, err := BuyerPrice(100, domain.FeeModePassedToBuyer, DefaultFeeConfig)
	if err != nil || p != 109.78 {
		t.Errorf("BuyerPrice = %v, %v; want 109.78", p, err)
	}
	p, err = BuyerPrice(100, domain.FeeModeAbsorbed, DefaultFeeConfig)
	if err != nil || p != 100 {
		t.Errorf("BuyerPrice absorbed = %v, %v; want 100", p, err)
	}

	pct, err := ConvenienceFeePercentage(100, DefaultFeeConfig)
	if err != nil || pct != 9.78 {
		t.Errorf("ConvenienceFeePercentage = %v, %v; want 9.78", pct, err)
	}
	if pct, _ := ConvenienceFeePercentage(0, DefaultFeeConfig); pct != 0 {
		t.Errorf("free ticket percentage = %v, want 0", pct)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.005, -1.01},
		{0, 0},
		{10.994, 10.99},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
