// Package lifecycle drives bookings through their status machine and fans
// out the notification, loyalty, audit and event side effects.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/audit"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/booking/entity"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/eligibility"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/notification"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/utilities"
)

// Event routing keys.
const (
	EventCreated       = "booking.created"
	EventStatusChanged = "booking.status_changed"
)

type Gatekeeper interface {
	Check(ctx context.Context, unitID string) eligibility.Decision
}

type Notifier interface {
	Send(ctx context.Context, n notification.Notification) notification.Notification
}

type XPLedger interface {
	AddXP(ctx context.Context, userID string, amount int) (int, error)
}

type Auditor interface {
	Append(ctx context.Context, e audit.Entry) store.Outcome
}

// Publisher emits domain events. Publishing is best effort and bounded by
// the store budget.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Request asks for a booking to move to Status.
type Request struct {
	BookingID string        `json:"booking_id"`
	Status    entity.Status `json:"status"`
	ActorID   string        `json:"actor_id,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// Result is a persisted transition.
type Result struct {
	Booking        *entity.Booking `json:"booking"`
	PreviousStatus entity.Status   `json:"previous_status"`
	Outcome        store.Outcome   `json:"outcome"`
}

// StatusChanged is the payload of a booking.status_changed event.
type StatusChanged struct {
	BookingID      string        `json:"booking_id"`
	UserID         string        `json:"user_id,omitempty"`
	PreviousStatus entity.Status `json:"previous_status"`
	NewStatus      entity.Status `json:"new_status"`
	ActorID        string        `json:"actor_id"`
	Override       bool          `json:"override,omitempty"`
	Outcome        store.Outcome `json:"outcome"`
	At             time.Time     `json:"at"`
}

type Engine struct {
	store     *store.Adapter
	gate      Gatekeeper
	notifier  Notifier
	ledger    XPLedger
	audit     Auditor
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(s *store.Adapter, gate Gatekeeper, notifier Notifier, ledger XPLedger, auditor Auditor, logger *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		gate:     gate,
		notifier: notifier,
		ledger:   ledger,
		audit:    auditor,
		logger:   logger,
		tracer:   otel.Tracer("github.com/ovaphlow/pitchfork/service-rental-go/internal/lifecycle"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create gates the draft on unit eligibility, persists a pending booking and
// tells the customer it was received.
func (e *Engine) Create(ctx context.Context, d entity.Draft) (*entity.Booking, store.Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Create", trace.WithAttributes(
		attribute.String("booking.user_id", d.UserID),
		attribute.String("booking.unit_id", d.UnitID),
	))
	defer span.End()

	if err := d.Validate(); err != nil {
		return nil, store.Failed, spanError(span, err)
	}
	if d.UnitID != "" {
		dec := e.gate.Check(ctx, d.UnitID)
		if !dec.Allowed {
			e.logger.Infow("booking blocked", "user_id", d.UserID, "unit_id", d.UnitID, "reason", dec.Reason)
			return nil, store.Failed, spanError(span, &BlockedError{Reason: dec.Reason})
		}
	}

	now := e.now()
	id := utilities.NewSnowflakeID()
	b, err := entity.NewBooking(id, utilities.NewBookingReference(id, now), d, now)
	if err != nil {
		return nil, store.Failed, spanError(span, err)
	}
	out, err := e.persist(ctx, b)
	if err != nil {
		return nil, out, spanError(span, err)
	}
	span.SetAttributes(attribute.String("booking.id", b.ID), attribute.String("store.outcome", out.String()))
	e.metrics.Transitioned(string(b.Status), out.String())
	e.logger.Infow("booking created",
		"id", b.ID,
		"reference", b.Reference,
		"user_id", b.UserID,
		"unit_id", b.UnitID,
		"outcome", out.String(),
	)

	e.notifier.Send(ctx, bookedNotification(b))
	e.publish(ctx, EventCreated, b)
	return b, out, nil
}

// Transition moves a booking along a legal edge of the status table.
func (e *Engine) Transition(ctx context.Context, req Request) (Result, error) {
	return e.transition(ctx, req, false)
}

// Override moves a booking to any status, bypassing the transition table.
// An identified actor is required and the audit entry records the override.
func (e *Engine) Override(ctx context.Context, req Request) (Result, error) {
	if req.ActorID == "" {
		return Result{}, ErrActorRequired
	}
	return e.transition(ctx, req, true)
}

// Get returns the freshest copy of a booking across both stores.
func (e *Engine) Get(ctx context.Context, id string) (*entity.Booking, error) {
	return e.load(ctx, id)
}

func (e *Engine) transition(ctx context.Context, req Request, override bool) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Transition", trace.WithAttributes(
		attribute.String("booking.id", req.BookingID),
		attribute.String("booking.status", string(req.Status)),
		attribute.Bool("lifecycle.override", override),
	))
	defer span.End()

	next, err := entity.ParseStatus(string(req.Status))
	if err != nil {
		return Result{}, spanError(span, err)
	}
	b, err := e.load(ctx, req.BookingID)
	if err != nil {
		return Result{}, spanError(span, err)
	}
	prev := b.Status
	if !override && !entity.CanTransition(prev, next) {
		return Result{}, spanError(span, &IllegalTransitionError{From: prev, To: next})
	}

	b.Apply(next, req.ActorID, e.now())
	out, err := e.persist(ctx, b)
	if err != nil {
		return Result{}, spanError(span, err)
	}
	span.SetAttributes(attribute.String("store.outcome", out.String()))
	e.metrics.Transitioned(string(next), out.String())
	e.logger.Infow("booking transitioned",
		"id", b.ID,
		"from", prev,
		"to", next,
		"actor_id", req.ActorID,
		"override", override,
		"version", b.Version,
		"outcome", out.String(),
	)

	e.recordAudit(ctx, b, prev, req, override)
	if b.UserID != "" {
		e.notifier.Send(ctx, statusNotification(b))
	}
	if next == entity.StatusCompleted && b.UserID != "" {
		e.accrue(ctx, b)
	}

	actor := req.ActorID
	if actor == "" {
		actor = audit.SystemActor
	}
	e.publish(ctx, EventStatusChanged, StatusChanged{
		BookingID:      b.ID,
		UserID:         b.UserID,
		PreviousStatus: prev,
		NewStatus:      next,
		ActorID:        actor,
		Override:       override,
		Outcome:        out,
		At:             b.UpdatedAt,
	})
	return Result{Booking: b, PreviousStatus: prev, Outcome: out}, nil
}

// load reads the booking from both stores and keeps the newer copy.
func (e *Engine) load(ctx context.Context, id string) (*entity.Booking, error) {
	var found *entity.Booking
	if d, ok := e.store.Get(ctx, store.Bookings, id); ok {
		found = e.decode(d)
	}
	d, err := e.store.Local().Get(store.Bookings, id)
	switch {
	case err == nil:
		if local := e.decode(d); local != nil && (found == nil || local.Newer(found)) {
			found = local
		}
	case !errors.Is(err, store.ErrNotFound):
		e.logger.Warnw("local booking read failed", "id", id, "err", err)
	}
	if found == nil {
		return nil, ErrBookingNotFound
	}
	return found, nil
}

func (e *Engine) decode(d store.Document) *entity.Booking {
	b, err := store.Decode[entity.Booking](d)
	if err == nil {
		err = b.Validate()
	}
	if err != nil {
		e.logger.Warnw("ignoring unreadable booking record", "id", d.ID, "err", err)
		return nil
	}
	return &b
}

func (e *Engine) persist(ctx context.Context, b *entity.Booking) (store.Outcome, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return store.Failed, fmt.Errorf("encode booking %s: %w", b.ID, err)
	}
	out := e.store.Put(ctx, store.Bookings, b.ID, data)
	if out == store.Failed {
		return out, fmt.Errorf("%w: %s", ErrPersistFailed, b.ID)
	}
	return out, nil
}

func (e *Engine) recordAudit(ctx context.Context, b *entity.Booking, prev entity.Status, req Request, override bool) {
	action := ActionStatusChange
	if override {
		action = ActionOverride
	}
	entry, err := audit.NewEntry(utilities.NewSnowflakeID(), b.ID, req.ActorID, action, prev, b.Status, req.Notes, b.UpdatedAt)
	if err != nil {
		e.logger.Warnw("audit entry not built", "booking_id", b.ID, "err", err)
		return
	}
	if out := e.audit.Append(ctx, entry); out == store.Failed {
		e.logger.Warnw("audit entry lost", "booking_id", b.ID, "entry_id", entry.ID)
	}
}

func (e *Engine) accrue(ctx context.Context, b *entity.Booking) {
	earned := b.RentalDays() * XPPerDay
	total, err := e.ledger.AddXP(ctx, b.UserID, earned)
	if err != nil {
		e.logger.Warnw("xp accrual failed", "booking_id", b.ID, "user_id", b.UserID, "amount", earned, "err", err)
		return
	}
	e.notifier.Send(ctx, pointsNotification(b.UserID, earned, total))
}

func (e *Engine) publish(ctx context.Context, key string, v any) {
	if e.publisher == nil {
		return
	}
	_, err := store.Bounded(ctx, e.store.Timeout(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.publisher.PublishJSON(ctx, key, v)
	})
	if err != nil {
		e.logger.Warnw("event publish failed", "key", key, "err", err)
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
