package notification

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
)

// Handler exposes the caller's notifications over HTTP.
type Handler struct {
	svc    *Dispatcher
	logger *zap.SugaredLogger
}

func NewHandler(svc *Dispatcher, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, h.svc.ListForUser(r.Context(), actor.ID))
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.ListBroadcast(r.Context()))
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]int{"unread": h.svc.UnreadCount(r.Context(), actor.ID)})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}
	out, err := h.svc.MarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		h.logger.Warnw("mark read failed", "id", id, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "mark read failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "outcome": out})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}
	out := h.svc.Delete(r.Context(), id)
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "outcome": out})
}

// authorize lets customers change only their own notifications. Broadcasts
// are read-only for customers; other users' records answer 404.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	actor, _ := auth.ActorFromContext(r.Context())
	if actor.Role != auth.RoleCustomer {
		return true
	}
	n, err := h.svc.Get(r.Context(), id)
	switch {
	case err != nil || (!n.Broadcast() && n.UserID != actor.ID):
		if err != nil && !errors.Is(err, ErrNotFound) {
			h.logger.Debugw("notification lookup failed", "id", id, "err", err)
		}
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return false
	case n.Broadcast():
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "broadcast notifications are read-only"})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
