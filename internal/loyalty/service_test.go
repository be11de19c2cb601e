package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLedger() (*Ledger, *MemoryDirectory) {
	dir := NewMemoryDirectory()
	return NewLedger(dir, nil, zap.NewNop().Sugar(), time.Second), dir
}

func TestCurrentTierBoundaries(t *testing.T) {
	l, _ := newLedger()
	tiers := l.Tiers()
	top := tiers[len(tiers)-1]

	assert.Equal(t, tiers[0], l.CurrentTier(0))
	assert.Equal(t, 500, l.CurrentTier(500).MinXP)
	assert.Equal(t, 0, l.CurrentTier(499).MinXP)
	assert.Equal(t, top, l.CurrentTier(2000))
	assert.Equal(t, tiers[len(tiers)-2], l.CurrentTier(1999))
	assert.Equal(t, top, l.CurrentTier(1_000_000))
	assert.Equal(t, tiers[0], l.CurrentTier(-5))
}

func TestNextTier(t *testing.T) {
	l, _ := newLedger()

	next, ok := l.NextTier(0)
	require.True(t, ok)
	assert.Equal(t, 500, next.Tier.MinXP)
	assert.Equal(t, 500, next.XPNeeded)

	next, ok = l.NextTier(500)
	require.True(t, ok)
	assert.Equal(t, 1000, next.Tier.MinXP)

	next, ok = l.NextTier(1999)
	require.True(t, ok)
	assert.Equal(t, 1, next.XPNeeded)

	_, ok = l.NextTier(2000)
	assert.False(t, ok)
}

func TestAddXPAccumulatesWithoutDedup(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	before := l.GetXP(ctx, "u1")
	total, err := l.AddXP(ctx, "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, before+30, total)
	assert.Equal(t, before+30, l.GetXP(ctx, "u1"))

	total, err = l.AddXP(ctx, "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, before+60, total)
}

func TestGetXPFailsOpen(t *testing.T) {
	l, dir := newLedger()
	ctx := context.Background()

	assert.Equal(t, 0, l.GetXP(ctx, "unknown"))

	_, err := l.AddXP(ctx, "u1", 100)
	require.NoError(t, err)
	dir.SetFailure(errors.New("directory down"))
	assert.Equal(t, 0, l.GetXP(ctx, "u1"))
}

func TestAddXPSurfacesErrors(t *testing.T) {
	l, dir := newLedger()
	dir.SetFailure(errors.New("directory down"))

	_, err := l.AddXP(context.Background(), "u1", 10)
	assert.Error(t, err)

	_, err = l.AddXP(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAccount(t *testing.T) {
	l, _ := newLedger()
	_, err := l.AddXP(context.Background(), "u1", 600)
	require.NoError(t, err)

	acc := l.Account(context.Background(), "u1")
	assert.Equal(t, 600, acc.ExperiencePoints)
	assert.Equal(t, "Silver", acc.Tier.Name)
	require.NotNil(t, acc.Next)
	assert.Equal(t, 400, acc.Next.XPNeeded)
}

func TestNewTierTableValidation(t *testing.T) {
	_, err := NewTierTable(nil)
	assert.ErrorIs(t, err, ErrInvalidTiers)

	_, err = NewTierTable([]Tier{{Name: "A", MinXP: 10}})
	assert.ErrorIs(t, err, ErrInvalidTiers)

	_, err = NewTierTable([]Tier{{Name: "A", MinXP: 0}, {Name: "B", MinXP: 0}})
	assert.ErrorIs(t, err, ErrInvalidTiers)

	_, err = NewTierTable([]Tier{{Name: "A", MinXP: 0}, {Name: "", MinXP: 5}})
	assert.ErrorIs(t, err, ErrInvalidTiers)
}

func TestTierTableIsImmutable(t *testing.T) {
	src := []Tier{{Name: "A", MinXP: 0, Perks: []string{"x"}}, {Name: "B", MinXP: 10}}
	table, err := NewTierTable(src)
	require.NoError(t, err)

	src[0].Name = "changed"
	src[0].Perks[0] = "changed"
	got := table.Tiers()
	got[1].Name = "also changed"

	assert.Equal(t, "A", table.Current(0).Name)
	assert.Equal(t, []string{"x"}, table.Current(0).Perks)
	assert.Equal(t, "B", table.Current(10).Name)
}
