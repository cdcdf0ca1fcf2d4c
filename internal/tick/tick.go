// Package tick implements the minimum-increment ("tick size") policy for
// bidding. The policy is a tier table mapping price brackets to the smallest
// amount by which the next bid must exceed the current price. Higher brackets
// carry equal-or-larger increments so high-priced auctions cannot be nibbled
// upward by negligible bids.
package tick

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is one price bracket. A price p falls into the first tier with
// p < UpTo; the final tier of a table is open-ended (UpTo ignored).
type Tier struct {
	UpTo      decimal.Decimal `json:"up_to"`
	Increment decimal.Decimal `json:"increment"`
}

// Table is an ordered tier list. Tables are immutable after construction
// and safe for concurrent use without locking.
type Table struct {
	tiers []Tier
}

// DefaultTable returns the increment tiers used when the operator supplies
// no TICK_TABLE configuration.
func DefaultTable() Table {
	t, err := NewTable([]Tier{
		{UpTo: decimal.NewFromInt(10_000), Increment: decimal.NewFromInt(100)},
		{UpTo: decimal.NewFromInt(100_000), Increment: decimal.NewFromInt(500)},
		{UpTo: decimal.NewFromInt(1_000_000), Increment: decimal.NewFromInt(1_000)},
		{UpTo: decimal.NewFromInt(10_000_000), Increment: decimal.NewFromInt(5_000)},
		{Increment: decimal.NewFromInt(10_000)},
	})
	if err != nil {
		panic(fmt.Sprintf("tick: default table invalid: %v", err))
	}
	return t
}

// NewTable validates and builds a Table. Bounds must be strictly ascending,
// increments positive and non-decreasing, and the last tier open-ended.
func NewTable(tiers []Tier) (Table, error) {
	if len(tiers) == 0 {
		return Table{}, fmt.Errorf("tick: table must have at least one tier")
	}
	for i, tier := range tiers {
		if tier.Increment.Sign() <= 0 {
			return Table{}, fmt.Errorf("tick: tier %d: increment must be positive, got %s", i, tier.Increment)
		}
		if i > 0 && tier.Increment.LessThan(tiers[i-1].Increment) {
			return Table{}, fmt.Errorf("tick: tier %d: increment %s below previous tier's %s", i, tier.Increment, tiers[i-1].Increment)
		}
		last := i == len(tiers)-1
		if last {
			continue
		}
		if tier.UpTo.Sign() <= 0 {
			return Table{}, fmt.Errorf("tick: tier %d: upper bound must be positive, got %s", i, tier.UpTo)
		}
		if i > 0 && !tier.UpTo.GreaterThan(tiers[i-1].UpTo) {
			return Table{}, fmt.Errorf("tick: tier %d: upper bound %s not above previous tier's %s", i, tier.UpTo, tiers[i-1].UpTo)
		}
	}
	return Table{tiers: append([]Tier(nil), tiers...)}, nil
}

// ParseTable builds a Table from a JSON tier array, e.g.
// [{"up_to":"10000","increment":"100"},{"increment":"500"}].
func ParseTable(data []byte) (Table, error) {
	var tiers []Tier
	if err := json.Unmarshal(data, &tiers); err != nil {
		return Table{}, fmt.Errorf("tick: parse table: %w", err)
	}
	return NewTable(tiers)
}

// MinimumIncrement returns the smallest amount the next bid must add on top
// of currentPrice. Pure and side-effect free; callers need no lock.
func (t Table) MinimumIncrement(currentPrice decimal.Decimal) decimal.Decimal {
	for i, tier := range t.tiers {
		if i == len(t.tiers)-1 || currentPrice.LessThan(tier.UpTo) {
			return tier.Increment
		}
	}
	// unreachable for a validated table
	return decimal.Zero
}

// MinimumNextBid is the lowest acceptable next bid for currentPrice.
func (t Table) MinimumNextBid(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Add(t.MinimumIncrement(currentPrice))
}
