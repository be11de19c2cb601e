package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
)

// DefaultTimeout is the budget for every remote call.
const DefaultTimeout = 2500 * time.Millisecond

// Adapter runs remote operations under a fixed budget and redirects writes
// to the local cache when the remote is slow or unavailable.
type Adapter struct {
	remote  Remote
	local   Local
	timeout time.Duration
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

type Option func(*Adapter)

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter wires a remote store and a local cache. A nil remote behaves
// as a store that is always unavailable.
func NewAdapter(remote Remote, local Local, logger *zap.SugaredLogger, opts ...Option) *Adapter {
	a := &Adapter{remote: remote, local: local, timeout: DefaultTimeout, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Local() Local { return a.local }

func (a *Adapter) Timeout() time.Duration { return a.timeout }

// GetChecked loads one document under the budget and surfaces ErrNotFound,
// ErrTimeout and ErrUnavailable to the caller.
func (a *Adapter) GetChecked(ctx context.Context, collection, id string) (Document, error) {
	if a.remote == nil {
		return Document{}, ErrUnavailable
	}
	return Bounded(ctx, a.timeout, func(ctx context.Context) (Document, error) {
		return a.remote.Get(ctx, collection, id)
	})
}

// Get loads one document. Not found, timeout and unavailability all report
// false.
func (a *Adapter) Get(ctx context.Context, collection, id string) (Document, bool) {
	d, err := a.GetChecked(ctx, collection, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.degraded(collection, "get", err)
		}
		return Document{}, false
	}
	return d, true
}

// QueryChecked runs a filtered query under the budget and surfaces errors.
func (a *Adapter) QueryChecked(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if a.remote == nil {
		return nil, ErrUnavailable
	}
	return Bounded(ctx, a.timeout, func(ctx context.Context) ([]Document, error) {
		return a.remote.Query(ctx, collection, filters...)
	})
}

// Query runs a filtered query; failures yield an empty result.
func (a *Adapter) Query(ctx context.Context, collection string, filters ...Filter) []Document {
	docs, err := a.QueryChecked(ctx, collection, filters...)
	if err != nil {
		a.degraded(collection, "query", err)
		return nil
	}
	return docs
}

// Put writes a document to the remote store, or to the local cache slot of
// the same name when the remote times out or is unavailable. A write the
// remote rejects outright is Failed and not cached. Put never returns an
// error; the Outcome says where the write landed.
func (a *Adapter) Put(ctx context.Context, collection, id string, data json.RawMessage) Outcome {
	err := ErrUnavailable
	if a.remote != nil {
		_, err = Bounded(ctx, a.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.remote.Put(ctx, collection, id, data)
		})
	}
	if err == nil {
		return Committed
	}
	if !Transient(err) {
		a.logger.Errorw("remote write rejected",
			"collection", collection,
			"id", id,
			"err", err,
		)
		return Failed
	}
	a.degraded(collection, "put", err)
	if lerr := a.local.Append(collection, id, data); lerr != nil {
		a.logger.Errorw("local fallback write failed",
			"collection", collection,
			"id", id,
			"remote_err", err,
			"err", lerr,
		)
		return Failed
	}
	return Deferred
}

// Delete removes a document remotely under the budget and always removes any
// local copy.
func (a *Adapter) Delete(ctx context.Context, collection, id string) Outcome {
	err := ErrUnavailable
	if a.remote != nil {
		_, err = Bounded(ctx, a.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.remote.Delete(ctx, collection, id)
		})
	}
	if lerr := a.local.Delete(collection, id); lerr != nil && !errors.Is(lerr, ErrNotFound) {
		a.logger.Warnw("local delete failed", "collection", collection, "id", id, "err", lerr)
	}
	if err == nil || errors.Is(err, ErrNotFound) {
		return Committed
	}
	a.degraded(collection, "delete", err)
	return Deferred
}

// Transient reports whether err means the remote did not answer in time or
// could not be reached, as opposed to rejecting the request.
func Transient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (a *Adapter) degraded(collection, op string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, ErrUnavailable):
		reason = "unavailable"
	}
	a.logger.Warnw("remote store degraded",
		"collection", collection,
		"op", op,
		"reason", reason,
		"err", err,
	)
	a.metrics.Fallback(collection, op, reason)
}

// Bounded runs fn with a deadline detached from caller cancellation and
// returns once the budget elapses even if fn ignores its context.
func Bounded[T any](ctx context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return r.v, fmt.Errorf("%w: %w", ErrTimeout, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrTimeout, budget)
	}
}
