package loyalty

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
)

type Handler struct {
	svc    *Ledger
	logger *zap.SugaredLogger
}

func NewHandler(svc *Ledger, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Me returns the caller's XP, tier and next tier.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, h.svc.Account(r.Context(), actor.ID))
}

// Tiers lists the tier ladder.
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Tiers())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
