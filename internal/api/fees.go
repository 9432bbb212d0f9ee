package api

import (
	"net/http"
	"strconv"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
)

type feePreviewResponse struct {
	engine.FeeBreakdown
	FeePercentage    float64 `json:"fee_percentage"`
	BuyerPriceLabel  string  `json:"buyer_price_label"`
	OrganizerReceive string  `json:"organizer_receives_label"`
}

// FeePreview shows the ticket form what a price turns into for the buyer
// and the organizer.
func FeePreview(cfg engine.FeeConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		price, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeInvalidAmount, "price must be a number")
			return
		}
		mode := domain.FeeMode(r.URL.Query().Get("mode"))
		if mode == "" {
			mode = domain.FeeModePassedToBuyer
		}

		b, err := engine.Calculate(price, mode, cfg)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
			return
		}
		pct, err := engine.ConvenienceFeePercentage(price, cfg)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, feePreviewResponse{
			FeeBreakdown:     b,
			FeePercentage:    pct,
			BuyerPriceLabel:  engine.FormatBRL(b.BuyerPrice),
			OrganizerReceive: engine.FormatBRL(b.OrganizerReceives),
		})
	}
}
