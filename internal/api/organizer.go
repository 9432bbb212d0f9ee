package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/cms"
	"github.com/Priya8975/event-console/internal/domain"
)

type OrganizerStore interface {
	GetOrganizer(ctx context.Context, id string) (*domain.Organizer, error)
	UpdateProfile(ctx context.Context, id string, upd *domain.OrganizerProfileUpdate, now time.Time) (*domain.Organizer, error)
	CreateOrganizerRequest(ctx context.Context, userID string, in *domain.OrganizerRequestInput) (*domain.OrganizerRequest, error)
}

type OrganizerHandler struct {
	store  OrganizerStore
	cmsURL string
	clock  clock.Clock
	logger *slog.Logger
}

func NewOrganizerHandler(s OrganizerStore, cmsURL string, clk clock.Clock, logger *slog.Logger) *OrganizerHandler {
	return &OrganizerHandler{store: s, cmsURL: cmsURL, clock: clk, logger: logger}
}

var logoImage = cms.AssetOptions{Width: 256, Height: 256, Fit: "cover"}

func (h *OrganizerHandler) withAssets(o *domain.Organizer) {
	if o.Logo != nil {
		o.LogoURL = cms.AssetURL(h.cmsURL, *o.Logo, logoImage)
	}
}

func (h *OrganizerHandler) Profile(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.GetOrganizer(r.Context(), organizerID(r))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get organizer")
		return
	}
	if o == nil {
		respondError(w, http.StatusNotFound, codeOrganizerNotFound, "organizer not found")
		return
	}
	h.withAssets(o)
	respondJSON(w, http.StatusOK, o)
}

func (h *OrganizerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd domain.OrganizerProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if err := domain.ValidateStruct(&upd).OrNil(); err != nil {
		respondDomainError(w, h.logger, err, "failed to update profile")
		return
	}

	o, err := h.store.UpdateProfile(r.Context(), organizerID(r), &upd, h.clock.Now())
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to update profile")
		return
	}
	h.withAssets(o)
	h.logger.Info("organizer profile updated", "organizer_id", o.ID)
	respondJSON(w, http.StatusOK, o)
}

// Request files an upgrade request for a user who is not an organizer yet.
func (h *OrganizerHandler) Request(w http.ResponseWriter, r *http.Request) {
	var in domain.OrganizerRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	req, err := h.request(r.Context(), userID(r), organizerID(r), &in)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to create organizer request")
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

// request is shared by the API and the organizer wizard.
func (h *OrganizerHandler) request(ctx context.Context, uid, orgID string, in *domain.OrganizerRequestInput) (*domain.OrganizerRequest, error) {
	if orgID != "" {
		return nil, domain.ErrAlreadyOrganizer
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	req, err := h.store.CreateOrganizerRequest(ctx, uid, in)
	if err != nil {
		return nil, err
	}
	h.logger.Info("organizer request created", "request_id", req.ID, "user_id", uid)
	return req, nil
}
