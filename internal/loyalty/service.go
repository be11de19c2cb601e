package loyalty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidAmount = errors.New("xp amount must be positive")
)

// Directory reads and updates experience points in the user directory.
type Directory interface {
	ExperiencePoints(ctx context.Context, userID string) (int, error)
	AddExperiencePoints(ctx context.Context, userID string, amount int) (int, error)
}

// Ledger accrues experience points and maps them onto the tier table.
type Ledger struct {
	dir     Directory
	tiers   *TierTable
	logger  *zap.SugaredLogger
	timeout time.Duration
}

func NewLedger(dir Directory, tiers *TierTable, logger *zap.SugaredLogger, timeout time.Duration) *Ledger {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	if timeout <= 0 {
		timeout = 2500 * time.Millisecond
	}
	return &Ledger{dir: dir, tiers: tiers, logger: logger, timeout: timeout}
}

// GetXP returns the user's points, or 0 when the user is unknown or the
// directory fails.
func (l *Ledger) GetXP(ctx context.Context, userID string) int {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	xp, err := l.dir.ExperiencePoints(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			l.logger.Warnw("xp lookup failed", "user_id", userID, "err", err)
		}
		return 0
	}
	return xp
}

// AddXP accrues amount and returns the new total. Every call accrues.
func (l *Ledger) AddXP(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	total, err := l.dir.AddExperiencePoints(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("add xp for %s: %w", userID, err)
	}
	l.logger.Infow("xp accrued", "user_id", userID, "amount", amount, "total", total)
	return total, nil
}

func (l *Ledger) CurrentTier(xp int) Tier { return l.tiers.Current(xp) }

func (l *Ledger) NextTier(xp int) (NextTier, bool) { return l.tiers.Next(xp) }

func (l *Ledger) Tiers() []Tier { return l.tiers.Tiers() }

// Account assembles the loyalty read model for a user.
func (l *Ledger) Account(ctx context.Context, userID string) Account {
	xp := l.GetXP(ctx, userID)
	acc := Account{UserID: userID, ExperiencePoints: xp, Tier: l.CurrentTier(xp)}
	if next, ok := l.NextTier(xp); ok {
		acc.Next = &next
	}
	return acc
}

// MemoryDirectory is an in-process Directory for ephemeral mode and tests.
type MemoryDirectory struct {
	mu      sync.Mutex
	xp      map[string]int
	failErr error
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{xp: make(map[string]int)}
}

// SetFailure makes every subsequent call return err.
func (m *MemoryDirectory) SetFailure(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *MemoryDirectory) ExperiencePoints(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	xp, ok := m.xp[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return xp, nil
}

func (m *MemoryDirectory) AddExperiencePoints(_ context.Context, userID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	m.xp[userID] += amount
	return m.xp[userID], nil
}
