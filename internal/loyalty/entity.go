package loyalty

import (
	"errors"
	"fmt"
)

// Tier is a named reward level unlocked at a cumulative XP threshold.
type Tier struct {
	Name  string   `json:"name"`
	MinXP int      `json:"min_xp"`
	Perks []string `json:"perks"`
}

// NextTier is the next level up and the XP still missing to reach it.
type NextTier struct {
	Tier     Tier `json:"tier"`
	XPNeeded int  `json:"xp_needed"`
}

// Account is the read model of a user's loyalty standing.
type Account struct {
	UserID           string    `json:"user_id"`
	ExperiencePoints int       `json:"experience_points"`
	Tier             Tier      `json:"tier"`
	Next             *NextTier `json:"next,omitempty"`
}

var ErrInvalidTiers = errors.New("invalid tier table")

// TierTable is an immutable ascending list of tiers.
type TierTable struct {
	tiers []Tier
}

// DefaultTiers is the built-in tier ladder.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Bronze", MinXP: 0, Perks: []string{"standard support"}},
		{Name: "Silver", MinXP: 500, Perks: []string{"5% off delivery", "priority support"}},
		{Name: "Gold", MinXP: 1000, Perks: []string{"free delivery", "10% deposit reduction"}},
		{Name: "Platinum", MinXP: 2000, Perks: []string{"free delivery", "25% deposit reduction", "dedicated handler"}},
	}
}

// NewTierTable validates and copies tiers. Thresholds must start at 0 and
// be strictly increasing.
func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidTiers)
	}
	if tiers[0].MinXP != 0 {
		return nil, fmt.Errorf("%w: lowest tier must start at 0 xp", ErrInvalidTiers)
	}
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: tier %d has no name", ErrInvalidTiers, i)
		}
		if i > 0 && t.MinXP <= tiers[i-1].MinXP {
			return nil, fmt.Errorf("%w: %s threshold %d not above %d", ErrInvalidTiers, t.Name, t.MinXP, tiers[i-1].MinXP)
		}
		perks := make([]string, len(t.Perks))
		copy(perks, t.Perks)
		out[i] = Tier{Name: t.Name, MinXP: t.MinXP, Perks: perks}
	}
	return &TierTable{tiers: out}, nil
}

// DefaultTierTable returns the built-in ladder.
func DefaultTierTable() *TierTable {
	t, err := NewTierTable(DefaultTiers())
	if err != nil {
		panic(err)
	}
	return t
}

// Tiers returns a copy of the ladder.
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Current picks the highest tier whose threshold is at or below xp.
func (t *TierTable) Current(xp int) Tier {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if t.tiers[i].MinXP <= xp {
			return t.tiers[i]
		}
	}
	return t.tiers[0]
}

// Next finds the lowest tier above xp. False at the top tier.
func (t *TierTable) Next(xp int) (NextTier, bool) {
	for _, tier := range t.tiers {
		if tier.MinXP > xp {
			return NextTier{Tier: tier, XPNeeded: tier.MinXP - xp}, true
		}
	}
	return NextTier{}, false
}
