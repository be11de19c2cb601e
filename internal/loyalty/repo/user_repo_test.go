package repo

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty"
)

func newMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestExperiencePoints(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT experience_points FROM users WHERE id=$1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"experience_points"}).AddRow(120))

	xp, err := r.ExperiencePoints(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 120, xp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExperiencePointsUnknownUser(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT experience_points FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"experience_points"}))

	_, err := r.ExperiencePoints(context.Background(), "ghost")
	assert.ErrorIs(t, err, loyalty.ErrUserNotFound)
}

func TestAddExperiencePointsIncrements(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("experience_points = users.experience_points + EXCLUDED.experience_points")).
		WithArgs("u1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"experience_points"}).AddRow(150))

	total, err := r.AddExperiencePoints(context.Background(), "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, 150, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerOverRepo(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"experience_points"}).AddRow(530))

	l := loyalty.NewLedger(r, nil, zap.NewNop().Sugar(), 0)
	total, err := l.AddXP(context.Background(), "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, 530, total)
	assert.Equal(t, "Silver", l.CurrentTier(total).Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
