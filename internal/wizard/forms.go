package wizard

import (
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

const (
	KindEvent     = "event"
	KindTicket    = "ticket"
	KindOrganizer = "organizer"
)

func EventDefinition() *Definition {
	return &Definition{
		Kind:          KindEvent,
		AutosaveDelay: 600 * time.Millisecond,
		NewForm: func() any {
			return &domain.EventInput{
				EventType: string(domain.EventTypeInPerson),
				Status:    string(domain.EventStatusDraft),
			}
		},
		Steps: []Step{
			{ID: "basic", Title: "Informações básicas", Fields: []string{"Title", "CategoryID", "ShortDescription"}},
			{ID: "visual", Title: "Identidade visual", Fields: []string{"CoverImage"}},
			{ID: "details", Title: "Detalhes", Fields: []string{"Description", "Tags"}},
			{
				ID:     "schedule",
				Title:  "Datas e horários",
				Fields: []string{"StartDate", "EndDate", "RegistrationStart", "RegistrationEnd"},
				Checks: []Check{typed((*domain.EventInput).CheckSchedule)},
			},
			{
				ID:     "location",
				Title:  "Local",
				Fields: []string{"EventType", "LocationName", "LocationAddress", "OnlineURL"},
				Checks: []Check{typed((*domain.EventInput).CheckLocation)},
			},
			{ID: "tickets", Title: "Ingressos", Fields: []string{"IsFree", "MaxAttendees", "Status"}},
			{ID: "review", Title: "Revisão", Full: true},
		},
	}
}

func TicketDefinition() *Definition {
	return &Definition{
		Kind:          KindTicket,
		AutosaveDelay: 600 * time.Millisecond,
		NewForm: func() any {
			return &domain.TicketInput{
				Visibility:     string(domain.VisibilityPublic),
				ServiceFeeType: string(domain.FeeModePassedToBuyer),
				Status:         string(domain.TicketStatusActive),
			}
		},
		Steps: []Step{
			{ID: "basic", Title: "Informações básicas", Fields: []string{"EventID", "Title", "Description", "Visibility"}},
			{
				ID:     "pricing",
				Title:  "Preço",
				Fields: []string{"Price", "ServiceFeeType", "AllowInstallments", "MaxInstallments", "MinAmountForInstallments"},
				Checks: []Check{typed(checkPaidTicket), typed((*domain.TicketInput).CheckInstallments)},
			},
			{
				ID:     "availability",
				Title:  "Disponibilidade",
				Fields: []string{"Quantity", "MinQuantityPerPurchase", "MaxQuantityPerPurchase"},
				Checks: []Check{typed((*domain.TicketInput).CheckQuantities)},
			},
			{
				ID:     "sale_period",
				Title:  "Período de vendas",
				Fields: []string{"SaleStartDate", "SaleEndDate"},
				Checks: []Check{typed((*domain.TicketInput).CheckSalePeriod)},
			},
			{ID: "review", Title: "Revisão", Full: true},
		},
	}
}

// The wizard only sells paid tickets; free registrations are created from
// the event itself.
func checkPaidTicket(in *domain.TicketInput, v *domain.ValidationError) {
	if in.Price <= 0 {
		v.Add("price", "must be greater than 0")
	}
}

func OrganizerDefinition() *Definition {
	return &Definition{
		Kind:          KindOrganizer,
		AutosaveDelay: 2 * time.Second,
		NewForm: func() any {
			return &domain.OrganizerRequestInput{}
		},
		Steps: []Step{
			{
				ID:     "identification",
				Title:  "Identificação",
				Fields: []string{"OrganizationName", "ContactEmail", "Phone", "Website", "Instagram", "HasExperience"},
			},
			{
				ID:     "events",
				Title:  "Perfil de eventos",
				Fields: []string{"EventTypes", "EstimatedAttendees", "EventFrequency", "Description", "Goals"},
			},
			{
				ID:     "confirmation",
				Title:  "Confirmação",
				Fields: []string{"AcceptTerms"},
				Checks: []Check{typed((*domain.OrganizerRequestInput).CheckTerms)},
			},
		},
	}
}

// Definitions returns the three console wizards keyed by kind.
func Definitions() map[string]*Definition {
	defs := map[string]*Definition{}
	for _, d := range []*Definition{EventDefinition(), TicketDefinition(), OrganizerDefinition()} {
		d.index()
		defs[d.Kind] = d
	}
	return defs
}
