package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier("test-secret", "service-rental-go", time.Minute)
	require.NoError(t, err)
	return v
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "x", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestIssueVerify(t *testing.T) {
	v := newVerifier(t)

	tok, err := v.Issue(PaymentProviderActor, RoleSystem)
	require.NoError(t, err)

	actor, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: PaymentProviderActor, Role: RoleSystem}, actor)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	v := newVerifier(t)
	other, err := NewVerifier("other-secret", "service-rental-go", time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := NewVerifier("test-secret", "someone-else", time.Minute)
	require.NoError(t, err)

	tok, err := other.Issue("admin-1", RoleAdmin)
	require.NoError(t, err)
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tok, err = wrongIssuer.Issue("admin-1", RoleAdmin)
	require.NoError(t, err)
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndRoles(t *testing.T) {
	v := newVerifier(t)
	var seen Actor
	h := v.Middleware(zap.NewNop().Sugar())(RequireRole(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}, RoleAdmin))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	customer, err := v.Issue("u1", RoleCustomer)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := v.Issue("admin-1", RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin-1", seen.ID)
}
