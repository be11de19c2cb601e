// Package store abstracts the remote document store and the local fallback
// cache behind a bounded-time adapter.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Collections shared by the lifecycle subsystem.
const (
	Bookings       = "bookings"
	AuditLogs      = "audit_logs"
	Notifications  = "notifications"
	EquipmentUnits = "equipment_units"
	WorkOrders     = "work_orders"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("remote store unavailable")
	ErrTimeout     = errors.New("remote store timed out")
)

// Document is one record of a collection. Data holds the JSON encoding of a
// closed domain record.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Decode unmarshals the document payload into a domain record.
func Decode[T any](d Document) (T, error) {
	var v T
	if err := json.Unmarshal(d.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.ID, err)
	}
	return v, nil
}

// Filter matches documents whose top-level field equals one of Values.
// A missing or null field compares as the empty string.
type Filter struct {
	Field  string
	Values []string
}

func Eq(field, value string) Filter {
	return Filter{Field: field, Values: []string{value}}
}

func In(field string, values ...string) Filter {
	return Filter{Field: field, Values: values}
}

// Remote is the document store of record.
type Remote interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Put(ctx context.Context, collection, id string, data json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
}

// Local is the durable fallback area, one logical slot per key. Writers
// replace by id and the last writer wins.
type Local interface {
	Append(key, id string, data json.RawMessage) error
	Update(key, id string, patch map[string]any) error
	Get(key, id string) (Document, error)
	List(key string) ([]Document, error)
	Delete(key, id string) error
}

// Outcome reports where a write landed.
type Outcome int

const (
	// Committed means the remote store accepted the write.
	Committed Outcome = iota
	// Deferred means the write is held in the local cache only.
	Deferred
	// Failed means neither store accepted the write.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Deferred:
		return "deferred"
	default:
		return "failed"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Match reports whether the document satisfies every filter.
func Match(d Document, filters ...Filter) bool {
	if len(filters) == 0 {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(d.Data, &fields); err != nil {
		return false
	}
	for _, f := range filters {
		if !matchOne(fieldString(fields[f.Field]), f.Values) {
			return false
		}
	}
	return true
}

func matchOne(v string, values []string) bool {
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}

func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// mergePatch applies a top-level field patch to a JSON object.
func mergePatch(data json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	fields := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
	}
	for k, v := range patch {
		fields[k] = v
	}
	return json.Marshal(fields)
}
