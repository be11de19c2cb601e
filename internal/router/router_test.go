package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/audit"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/eligibility"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/lifecycle"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/notification"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
)

type testServer struct {
	handler  http.Handler
	verifier *auth.Verifier
	remote   *store.MemoryRemote
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	remote := store.NewMemoryRemote()
	adapter := store.NewAdapter(remote, store.NewMemoryLocal(), log, store.WithTimeout(50*time.Millisecond), store.WithMetrics(m))

	verifier, err := auth.NewVerifier("test-secret", "rental-test", time.Minute)
	require.NoError(t, err)

	dispatcher := notification.NewDispatcher(adapter, log, m)
	ledger := loyalty.NewLedger(loyalty.NewMemoryDirectory(), nil, log, 50*time.Millisecond)
	auditLog := audit.NewLog(adapter, log)
	engine := lifecycle.NewEngine(adapter, eligibility.NewGate(adapter, log, m), dispatcher, ledger, auditLog, log, lifecycle.WithMetrics(m))

	h := RegisterRoutes(log, Handlers{
		Bookings:      lifecycle.NewHandler(engine, log),
		Audit:         audit.NewHandler(auditLog, log),
		Notifications: notification.NewHandler(dispatcher, log),
		Loyalty:       loyalty.NewHandler(ledger, log),
		Verifier:      verifier,
		Gatherer:      reg,
	})
	return &testServer{handler: h, verifier: verifier, remote: remote}
}

func (s *testServer) do(t *testing.T, method, path, body string, subject string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, Prefix+path, nil)
	} else {
		req = httptest.NewRequest(method, Prefix+path, strings.NewReader(body))
	}
	if subject != "" {
		tok, err := s.verifier.Issue(subject, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func bookingBody(unit string) string {
	return `{"unit_id":"` + unit + `","rental_start":"2026-11-01T08:00:00Z","rental_end":"2026-11-04T08:00:00Z","total_amount":300}`
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", "", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rental_notification_placeholder_lists_total")
}

func TestBookingsRequireToken(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/bookings", bookingBody("u1"), "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.remote.Seed(store.EquipmentUnits, "u1", eligibility.Unit{ID: "u1", MaintenanceStatus: eligibility.MaintenanceReady}))

	rec := s.do(t, http.MethodPost, "/bookings", bookingBody("u1"), "cust-1", auth.RoleCustomer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Booking struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
			Status string `json:"status"`
		} `json:"booking"`
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "cust-1", created.Booking.UserID)
	assert.Equal(t, "BOOKING_PENDING", created.Booking.Status)
	assert.Equal(t, "committed", created.Outcome)
	id := created.Booking.ID

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/transitions", `{"status":"PAYMENT_PROCESSING"}`, "cust-1", auth.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/transitions", `{"status":"PAYMENT_PROCESSING"}`, auth.PaymentProviderActor, auth.RoleSystem)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/transitions", `{"status":"COMPLETED"}`, "admin-1", auth.RoleAdmin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/bookings/"+id+"/audit", "", "admin-1", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, auth.PaymentProviderActor, entries[0].ActorID)

	rec = s.do(t, http.MethodGet, "/bookings/"+id, "", "cust-2", auth.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/notifications/unread-count", "", "cust-1", auth.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":2}`, rec.Body.String())
}

func TestBlockedBookingIsConflict(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.remote.Seed(store.EquipmentUnits, "u1", eligibility.Unit{ID: "u1", MaintenanceStatus: eligibility.MaintenanceCritical}))

	rec := s.do(t, http.MethodPost, "/bookings", bookingBody("u1"), "cust-1", auth.RoleCustomer)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rental Blocked: unit maintenance status is Critical")
}

func TestUnknownBookingIsNotFound(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/bookings/nope/transitions", `{"status":"APPROVED"}`, "admin-1", auth.RoleAdmin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Booking not found")
}

func TestNotificationsAreScopedToOwner(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.remote.Seed(store.EquipmentUnits, "u1", eligibility.Unit{ID: "u1", MaintenanceStatus: eligibility.MaintenanceReady}))
	rec := s.do(t, http.MethodPost, "/bookings", bookingBody("u1"), "alice", auth.RoleCustomer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/notifications", "", "alice", auth.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []notification.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	id := list[0].ID

	rec = s.do(t, http.MethodPost, "/notifications/"+id+"/read", "", "mallory", auth.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/notifications/"+id, "", "mallory", auth.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/notifications/unread-count", "", "alice", auth.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/notifications/"+id+"/read", "", "alice", auth.RoleCustomer)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/notifications/unread-count", "", "alice", auth.RoleCustomer)
	assert.JSONEq(t, `{"unread":0}`, rec.Body.String())
}

func TestBroadcastNotificationsAreReadOnlyForCustomers(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.remote.Seed(store.Notifications, "bc1", notification.Notification{
		ID:        "bc1",
		Type:      notification.TypeWarning,
		Title:     "Depot closed",
		Message:   "Closed Monday for stocktake.",
		CreatedAt: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
	}))

	rec := s.do(t, http.MethodDelete, "/notifications/bc1", "", "alice", auth.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/notifications/bc1/read", "", "alice", auth.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, s.remote.Len(store.Notifications))

	rec = s.do(t, http.MethodDelete, "/notifications/bc1", "", "admin-1", auth.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, s.remote.Len(store.Notifications))
}
