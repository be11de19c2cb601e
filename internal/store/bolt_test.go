package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "rental.db")
	c, err := OpenBoltCache(path)
	require.NoError(t, err)

	require.NoError(t, c.Append(Bookings, "b1", json.RawMessage(`{"status":"BOOKING_PENDING","user_id":"u1"}`)))
	require.NoError(t, c.Append(Bookings, "b2", json.RawMessage(`{"status":"APPROVED"}`)))
	require.NoError(t, c.Update(Bookings, "b1", map[string]any{"status": "CANCELLED"}))

	d, err := c.Get(Bookings, "b1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"CANCELLED","user_id":"u1"}`, string(d.Data))
	assert.False(t, d.UpdatedAt.IsZero())

	docs, err := c.List(Bookings)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, c.Close())

	reopened, err := OpenBoltCache(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	d, err = reopened.Get(Bookings, "b1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"CANCELLED","user_id":"u1"}`, string(d.Data))

	require.NoError(t, reopened.Delete(Bookings, "b2"))
	assert.ErrorIs(t, reopened.Delete(Bookings, "b2"), ErrNotFound)
}

func TestBoltCacheMissing(t *testing.T) {
	c, err := OpenBoltCache(filepath.Join(t.TempDir(), "rental.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Get(AuditLogs, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Update(AuditLogs, "nope", map[string]any{"x": 1}), ErrNotFound)

	docs, err := c.List(AuditLogs)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
