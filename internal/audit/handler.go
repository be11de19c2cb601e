package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

type Handler struct {
	svc    *Log
	logger *zap.SugaredLogger
}

func NewHandler(svc *Log, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns the audit trail of the booking in the path.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.ListForBooking(r.Context(), r.PathValue("id"))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(entries)
}

// Export streams the audit trail as an xlsx workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, h.svc.ListForBooking(r.Context(), id)); err != nil {
		h.logger.Warnw("audit export failed", "booking_id", id, "err", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-%s.xlsx"`, id))
	_, _ = w.Write(buf.Bytes())
}
