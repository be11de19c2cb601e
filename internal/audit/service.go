package audit

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
)

// Log is the append-only admin action trail. Entries are written to the
// local cache always and to the remote store best effort.
type Log struct {
	store  *store.Adapter
	logger *zap.SugaredLogger
}

func NewLog(s *store.Adapter, logger *zap.SugaredLogger) *Log {
	return &Log{store: s, logger: logger}
}

// Append writes e to both stores. Committed means the remote store has it,
// Deferred means only the local cache does.
func (l *Log) Append(ctx context.Context, e Entry) store.Outcome {
	if err := e.validate(); err != nil {
		l.logger.Warnw("audit entry rejected", "id", e.ID, "err", err)
		return store.Failed
	}
	data, err := json.Marshal(e)
	if err != nil {
		l.logger.Errorw("audit entry encode failed", "id", e.ID, "err", err)
		return store.Failed
	}
	if err := l.store.Local().Append(store.AuditLogs, e.ID, data); err != nil {
		l.logger.Warnw("local audit write failed", "id", e.ID, "booking_id", e.BookingID, "err", err)
	}
	out := l.store.Put(ctx, store.AuditLogs, e.ID, data)
	l.logger.Debugw("audit entry appended",
		"id", e.ID,
		"booking_id", e.BookingID,
		"actor_id", e.ActorID,
		"new_status", e.NewStatus,
		"outcome", out.String(),
	)
	return out
}

// ListForBooking merges remote and local entries for a booking, oldest first.
func (l *Log) ListForBooking(ctx context.Context, bookingID string) []Entry {
	filter := store.Eq("booking_id", bookingID)
	docs := l.store.Query(ctx, store.AuditLogs, filter)

	local, err := l.store.Local().List(store.AuditLogs)
	if err != nil {
		l.logger.Warnw("local audit listing failed", "booking_id", bookingID, "err", err)
	}
	for _, d := range local {
		if store.Match(d, filter) {
			docs = append(docs, d)
		}
	}

	byID := make(map[string]Entry, len(docs))
	for _, d := range docs {
		e, err := store.Decode[Entry](d)
		if err != nil {
			l.logger.Warnw("skipping undecodable audit entry", "id", d.ID, "err", err)
			continue
		}
		if !e.Verify() {
			l.logger.Warnw("audit entry digest mismatch", "id", e.ID, "booking_id", e.BookingID)
		}
		byID[e.ID] = e
	}

	out := make([]Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
