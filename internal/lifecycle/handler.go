package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/booking/entity"
)

type Handler struct {
	svc    *Engine
	logger *zap.SugaredLogger
}

func NewHandler(svc *Engine, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type transitionBody struct {
	Status entity.Status `json:"status"`
	Notes  string        `json:"notes,omitempty"`
}

// Create books a unit. Customers always book for themselves.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var d entity.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	if d.UserID == "" || actor.Role == auth.RoleCustomer {
		d.UserID = actor.ID
	}
	b, out, err := h.svc.Create(r.Context(), d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"booking": b, "outcome": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	if actor.Role == auth.RoleCustomer && b.UserID != actor.ID {
		h.writeError(w, ErrBookingNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.svc.Transition)
}

func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.svc.Override)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op func(context.Context, Request) (Result, error)) {
	var body transitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	res, err := op(r.Context(), Request{
		BookingID: r.PathValue("id"),
		Status:    body.Status,
		ActorID:   actor.ID,
		Notes:     body.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidBooking), errors.Is(err, entity.ErrUnknownStatus), errors.Is(err, ErrActorRequired):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrRentalBlocked), errors.Is(err, ErrIllegalTransition):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrBookingNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Errorw("booking request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
