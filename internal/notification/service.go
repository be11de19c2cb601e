package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/utilities"
)

var ErrNotFound = errors.New("notification not found")

// Sink receives a copy of every sent notification it cares about.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Dispatcher delivers notifications through the store adapter and never
// surfaces store health to its callers.
type Dispatcher struct {
	store   *store.Adapter
	sinks   []Sink
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDispatcher(s *store.Adapter, logger *zap.SugaredLogger, m *metrics.Metrics, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		store:   s,
		sinks:   sinks,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Send stores n and returns it with id and timestamp assigned. It always
// returns a notification, even when nothing could be stored.
func (d *Dispatcher) Send(ctx context.Context, n Notification) Notification {
	if n.ID == "" {
		n.ID = utilities.NewSnowflakeID()
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	n.Read = false
	n.Offline = false
	n.CreatedAt = d.now()

	if err := n.Validate(); err != nil {
		d.logger.Warnw("notification not stored", "id", n.ID, "err", err)
		return n
	}
	data, err := json.Marshal(n)
	if err != nil {
		d.logger.Warnw("notification encode failed", "id", n.ID, "err", err)
		return n
	}
	out := d.store.Put(ctx, store.Notifications, n.ID, data)
	d.metrics.Notified(string(n.Type), out.String())
	if out != store.Committed {
		d.logger.Warnw("notification not committed", "id", n.ID, "user_id", n.UserID, "outcome", out.String())
	}

	d.deliver(ctx, n)
	return n
}

// deliver hands n to each sink under the store budget.
func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	for _, s := range d.sinks {
		_, err := store.Bounded(ctx, d.store.Timeout(), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.Deliver(ctx, n)
		})
		if err != nil {
			d.logger.Warnw("notification sink failed", "id", n.ID, "err", err)
		}
	}
}

// MarkRead flags a notification as read wherever it is held.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) (store.Outcome, error) {
	n, err := d.load(ctx, id)
	if err != nil {
		return store.Failed, err
	}
	n.Read = true
	data, err := json.Marshal(n)
	if err != nil {
		return store.Failed, err
	}
	out := d.store.Put(ctx, store.Notifications, id, data)
	if out == store.Committed {
		if err := d.store.Local().Update(store.Notifications, id, map[string]any{"read": true}); err != nil && !errors.Is(err, store.ErrNotFound) {
			d.logger.Warnw("local read flag update failed", "id", id, "err", err)
		}
	}
	return out, nil
}

// Get returns a notification from the remote store or the local cache.
func (d *Dispatcher) Get(ctx context.Context, id string) (Notification, error) {
	return d.load(ctx, id)
}

func (d *Dispatcher) Delete(ctx context.Context, id string) store.Outcome {
	return d.store.Delete(ctx, store.Notifications, id)
}

// ListForUser returns the user's notifications, newest first. While the
// remote store is unreachable the result carries offline placeholders.
func (d *Dispatcher) ListForUser(ctx context.Context, userID string) []Notification {
	return d.list(ctx, userID)
}

// ListBroadcast returns notifications addressed to everyone.
func (d *Dispatcher) ListBroadcast(ctx context.Context) []Notification {
	return d.list(ctx, "")
}

// UnreadCount counts unread notifications, ignoring placeholders.
func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) int {
	count := 0
	for _, n := range d.list(ctx, userID) {
		if !n.Read && !n.Offline {
			count++
		}
	}
	return count
}

func (d *Dispatcher) list(ctx context.Context, userID string) []Notification {
	filter := store.Eq("user_id", userID)
	local := d.localMatching(filter)

	docs, err := d.store.QueryChecked(ctx, store.Notifications, filter)
	if err != nil {
		d.logger.Warnw("notification listing degraded", "user_id", userID, "err", err)
		d.metrics.Placeholder()
		return merge(local, placeholders(d.now()))
	}
	return merge(d.decodeAll(docs), local)
}

func (d *Dispatcher) load(ctx context.Context, id string) (Notification, error) {
	if doc, ok := d.store.Get(ctx, store.Notifications, id); ok {
		return store.Decode[Notification](doc)
	}
	doc, err := d.store.Local().Get(store.Notifications, id)
	if err != nil {
		return Notification{}, ErrNotFound
	}
	return store.Decode[Notification](doc)
}

func (d *Dispatcher) localMatching(filter store.Filter) []Notification {
	docs, err := d.store.Local().List(store.Notifications)
	if err != nil {
		d.logger.Warnw("local notification listing failed", "err", err)
		return nil
	}
	var matched []store.Document
	for _, doc := range docs {
		if store.Match(doc, filter) {
			matched = append(matched, doc)
		}
	}
	return d.decodeAll(matched)
}

func (d *Dispatcher) decodeAll(docs []store.Document) []Notification {
	out := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := store.Decode[Notification](doc)
		if err != nil {
			d.logger.Warnw("skipping undecodable notification", "id", doc.ID, "err", err)
			continue
		}
		out = append(out, n)
	}
	return out
}

// merge de-duplicates by id; a copy marked read anywhere stays read.
func merge(lists ...[]Notification) []Notification {
	byID := make(map[string]Notification)
	for _, list := range lists {
		for _, n := range list {
			if prev, ok := byID[n.ID]; ok {
				n.Read = n.Read || prev.Read
			}
			byID[n.ID] = n
		}
	}
	out := make([]Notification, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
