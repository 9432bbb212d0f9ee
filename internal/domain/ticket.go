package domain

import "time"

// FeeMode decides who pays the service fee.
type FeeMode string

const (
	FeeModePassedToBuyer FeeMode = "passed_to_buyer"
	FeeModeAbsorbed      FeeMode = "absorbed"
)

func (m FeeMode) Valid() bool {
	return m == FeeModePassedToBuyer || m == FeeModeAbsorbed
}

type TicketStatus string

const (
	TicketStatusActive   TicketStatus = "active"
	TicketStatusInactive TicketStatus = "inactive"
	TicketStatusSoldOut  TicketStatus = "sold_out"
)

type TicketVisibility string

const (
	VisibilityPublic      TicketVisibility = "public"
	VisibilityInvitedOnly TicketVisibility = "invited_only"
	VisibilityManual      TicketVisibility = "manual"
)

// Ticket mirrors the CMS "event_tickets" collection.
type Ticket struct {
	ID                       string           `json:"id"`
	EventID                  string           `json:"event_id"`
	EventTitle               string           `json:"event_title,omitempty"`
	Title                    string           `json:"title"`
	Description              *string          `json:"description,omitempty"`
	Visibility               TicketVisibility `json:"visibility"`
	Status                   TicketStatus     `json:"status"`
	Price                    float64          `json:"price"`
	ServiceFeeType           FeeMode          `json:"service_fee_type"`
	BuyerPrice               float64          `json:"buyer_price"`
	Quantity                 int              `json:"quantity"`
	QuantitySold             int              `json:"quantity_sold"`
	MinQuantityPerPurchase   *int             `json:"min_quantity_per_purchase,omitempty"`
	MaxQuantityPerPurchase   *int             `json:"max_quantity_per_purchase,omitempty"`
	SaleStartDate            *time.Time       `json:"sale_start_date,omitempty"`
	SaleEndDate              *time.Time       `json:"sale_end_date,omitempty"`
	AllowInstallments        bool             `json:"allow_installments"`
	MaxInstallments          *int             `json:"max_installments,omitempty"`
	MinAmountForInstallments *float64         `json:"min_amount_for_installments,omitempty"`
	DateCreated              time.Time        `json:"date_created"`
	DateUpdated              *time.Time       `json:"date_updated,omitempty"`
}

// Available returns how many units remain for sale.
func (t *Ticket) Available() int {
	if left := t.Quantity - t.QuantitySold; left > 0 {
		return left
	}
	return 0
}

// TicketInput is the ticket form shared by the creation wizard and the
// ticket API.
type TicketInput struct {
	EventID     string `json:"event_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
	Visibility  string `json:"visibility" validate:"required,oneof=public invited_only manual"`

	Price                    float64  `json:"price" validate:"gte=0,lte=9999999999.99"`
	ServiceFeeType           string   `json:"service_fee_type" validate:"required,oneof=absorbed passed_to_buyer"`
	AllowInstallments        bool     `json:"allow_installments"`
	MaxInstallments          *int     `json:"max_installments" validate:"omitempty,min=2,max=12"`
	MinAmountForInstallments *float64 `json:"min_amount_for_installments" validate:"omitempty,gt=0,lte=9999999999.99"`

	Quantity               int  `json:"quantity" validate:"gt=0"`
	MinQuantityPerPurchase *int `json:"min_quantity_per_purchase" validate:"omitempty,gt=0"`
	MaxQuantityPerPurchase *int `json:"max_quantity_per_purchase" validate:"omitempty,gt=0"`

	SaleStartDate *time.Time `json:"sale_start_date"`
	SaleEndDate   *time.Time `json:"sale_end_date"`

	Status string `json:"status" validate:"omitempty,oneof=active inactive sold_out"`
}

// CheckInstallments requires a plan size and minimum once installments are allowed.
func (in *TicketInput) CheckInstallments(v *ValidationError) {
	if !in.AllowInstallments {
		return
	}
	if in.MaxInstallments == nil || *in.MaxInstallments < 2 || *in.MaxInstallments > 12 {
		v.Add("max_installments", "allowing installments requires between 2 and 12 installments")
	}
	if in.MinAmountForInstallments == nil || *in.MinAmountForInstallments <= 0 {
		v.Add("min_amount_for_installments", "allowing installments requires a minimum amount")
	}
}

func (in *TicketInput) CheckQuantities(v *ValidationError) {
	if in.MinQuantityPerPurchase != nil && in.MaxQuantityPerPurchase != nil &&
		*in.MaxQuantityPerPurchase < *in.MinQuantityPerPurchase {
		v.Add("max_quantity_per_purchase", "maximum per purchase must be greater than or equal to the minimum")
	}
	if in.MaxQuantityPerPurchase != nil && in.Quantity > 0 && *in.MaxQuantityPerPurchase > in.Quantity {
		v.Add("max_quantity_per_purchase", "maximum per purchase cannot exceed the ticket quantity")
	}
}

func (in *TicketInput) CheckSalePeriod(v *ValidationError) {
	if in.SaleStartDate != nil && in.SaleEndDate != nil && !in.SaleStartDate.Before(*in.SaleEndDate) {
		v.Add("sale_end_date", "sale start must be before sale end")
	}
}

// Validate checks the whole form including cross-field rules.
func (in *TicketInput) Validate() error {
	v := ValidateStruct(in)
	in.CheckInstallments(v)
	in.CheckQuantities(v)
	in.CheckSalePeriod(v)
	return v.OrNil()
}

// ResolvedStatus defaults an empty status to active.
func (in *TicketInput) ResolvedStatus() TicketStatus {
	if in.Status == "" {
		return TicketStatusActive
	}
	return TicketStatus(in.Status)
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	OrganizerID string
	Search      string
	EventIDs    []string
	Statuses    []string
	Page        int
	Limit       int
}

// Input returns the editable fields of t, the base a PATCH is merged into.
func (t *Ticket) Input() TicketInput {
	in := TicketInput{
		EventID:                  t.EventID,
		Title:                    t.Title,
		Visibility:               string(t.Visibility),
		Price:                    t.Price,
		ServiceFeeType:           string(t.ServiceFeeType),
		AllowInstallments:        t.AllowInstallments,
		MaxInstallments:          t.MaxInstallments,
		MinAmountForInstallments: t.MinAmountForInstallments,
		Quantity:                 t.Quantity,
		MinQuantityPerPurchase:   t.MinQuantityPerPurchase,
		MaxQuantityPerPurchase:   t.MaxQuantityPerPurchase,
		SaleStartDate:            t.SaleStartDate,
		SaleEndDate:              t.SaleEndDate,
		Status:                   string(t.Status),
	}
	if t.Description != nil {
		in.Description = *t.Description
	}
	return in
}
