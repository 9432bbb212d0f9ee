package domain

import (
	"time"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusArchived  EventStatus = "archived"
)

type EventType string

const (
	EventTypeInPerson EventType = "in_person"
	EventTypeOnline   EventType = "online"
	EventTypeHybrid   EventType = "hybrid"
)

// Event mirrors the CMS "events" collection.
type Event struct {
	ID                string      `json:"id"`
	OrganizerID       string      `json:"organizer_id"`
	CategoryID        *string     `json:"category_id,omitempty"`
	Title             string      `json:"title"`
	Slug              string      `json:"slug"`
	ShortDescription  *string     `json:"short_description,omitempty"`
	Description       string      `json:"description"`
	CoverImage        *string     `json:"cover_image,omitempty"`
	CoverImageURL     string      `json:"cover_image_url,omitempty"`
	Tags              []string    `json:"tags"`
	StartDate         time.Time   `json:"start_date"`
	EndDate           time.Time   `json:"end_date"`
	RegistrationStart *time.Time  `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time  `json:"registration_end,omitempty"`
	EventType         EventType   `json:"event_type"`
	LocationName      *string     `json:"location_name,omitempty"`
	LocationAddress   *string     `json:"location_address,omitempty"`
	OnlineURL         *string     `json:"online_url,omitempty"`
	IsFree            bool        `json:"is_free"`
	MaxAttendees      *int        `json:"max_attendees,omitempty"`
	Status            EventStatus `json:"status"`
	Featured          bool        `json:"featured"`
	DateCreated       time.Time   `json:"date_created"`
	DateUpdated       *time.Time  `json:"date_updated,omitempty"`
}

type EventCategory struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// EventInput is the full event creation form. Steps of the creation wizard
// validate subsets of these fields.
type EventInput struct {
	Title              string     `json:"title" validate:"required,min=3,max=120"`
	CategoryID         string     `json:"category_id" validate:"required"`
	ShortDescription   string     `json:"short_description" validate:"max=160"`
	CoverImage         string     `json:"cover_image"`
	Description        string     `json:"description" validate:"required,min=20"`
	Tags               []string   `json:"tags" validate:"max=10,dive,min=1,max=30"`
	StartDate          *time.Time `json:"start_date" validate:"required"`
	EndDate            *time.Time `json:"end_date" validate:"required"`
	RegistrationStart  *time.Time `json:"registration_start"`
	RegistrationEnd    *time.Time `json:"registration_end"`
	EventType          string     `json:"event_type" validate:"required,oneof=in_person online hybrid"`
	LocationName       string     `json:"location_name" validate:"max=200"`
	LocationAddress    string     `json:"location_address" validate:"max=300"`
	OnlineURL          string     `json:"online_url" validate:"omitempty,url"`
	IsFree             bool       `json:"is_free"`
	MaxAttendees       *int       `json:"max_attendees" validate:"omitempty,gt=0"`
	Status             string     `json:"status" validate:"required,oneof=draft published cancelled archived"`
	Featured           bool       `json:"featured"`
	PublishAfterCreate bool       `json:"publish_after_create"`
}

// CheckSchedule enforces date ordering between the event and its
// registration window.
func (in *EventInput) CheckSchedule(v *ValidationError) {
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		v.Add("end_date", "end date must not be before start date")
	}
	if in.RegistrationStart != nil && in.RegistrationEnd != nil && !in.RegistrationStart.Before(*in.RegistrationEnd) {
		v.Add("registration_end", "registration must end after it starts")
	}
	if in.RegistrationEnd != nil && in.EndDate != nil && in.RegistrationEnd.After(*in.EndDate) {
		v.Add("registration_end", "registration must end before the event ends")
	}
}

// CheckLocation enforces the fields each event format needs.
func (in *EventInput) CheckLocation(v *ValidationError) {
	switch EventType(in.EventType) {
	case EventTypeInPerson:
		if in.LocationName == "" {
			v.Add("location_name", "location name is required for in-person events")
		}
		if in.LocationAddress == "" {
			v.Add("location_address", "address is required for in-person events")
		}
	case EventTypeOnline:
		if in.OnlineURL == "" {
			v.Add("online_url", "online url is required for online events")
		}
	case EventTypeHybrid:
		if in.LocationName == "" {
			v.Add("location_name", "location name is required for hybrid events")
		}
		if in.OnlineURL == "" {
			v.Add("online_url", "online url is required for hybrid events")
		}
	}
}

// Validate checks the whole form including cross-field rules.
func (in *EventInput) Validate() error {
	v := ValidateStruct(in)
	in.CheckSchedule(v)
	in.CheckLocation(v)
	return v.OrNil()
}

// FinalStatus resolves the stored status, honoring publish_after_create.
func (in *EventInput) FinalStatus() EventStatus {
	if in.PublishAfterCreate {
		return EventStatusPublished
	}
	return EventStatus(in.Status)
}
