package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the stored lifecycle state of an auction.
type AuctionStatus string

const (
	StatusProceeding AuctionStatus = "PROCEEDING"
	StatusCompleted  AuctionStatus = "COMPLETED"
	StatusCancelled  AuctionStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is allowed.
func (s AuctionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ListingState is the presentation-level state of an auction, derived from
// its time window and stored status. It is never persisted.
type ListingState string

const (
	ListingOnAuction ListingState = "ON_AUCTION"
	ListingUpcoming  ListingState = "UPCOMING"
	ListingEnded     ListingState = "ENDED"
)

// Auction represents a rising-price sale of one product.
type Auction struct {
	AuctionID    string          `json:"auction_id" db:"auction_id"`
	ProductID    string          `json:"product_id" db:"product_id"`
	Status       AuctionStatus   `json:"status" db:"status"`
	StartPrice   decimal.Decimal `json:"start_price" db:"start_price"`
	CurrentPrice decimal.Decimal `json:"current_price" db:"current_price"`
	StartTime    time.Time       `json:"start_time" db:"start_time"`
	EndTime      time.Time       `json:"end_time" db:"end_time"`
	CancelReason string          `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledBy  string          `json:"cancelled_by,omitempty" db:"cancelled_by"`
}

// ListingStateAt derives the listing state at the given instant.
// A terminal auction is always ENDED regardless of its time window.
func (a Auction) ListingStateAt(now time.Time) ListingState {
	if a.Status.Terminal() || !now.Before(a.EndTime) {
		return ListingEnded
	}
	if now.Before(a.StartTime) {
		return ListingUpcoming
	}
	return ListingOnAuction
}

// Expired reports whether the auction is still open past its end time,
// i.e. due to be picked up by the closing sweep.
func (a Auction) Expired(now time.Time) bool {
	return a.Status == StatusProceeding && !now.Before(a.EndTime)
}

// Bid is one customer's accepted price offer on an auction.
// Bids are append-only: once recorded they are never mutated or deleted.
type Bid struct {
	BidID      string          `json:"bid_id" db:"bid_id"`
	AuctionID  string          `json:"auction_id" db:"auction_id"`
	CustomerID string          `json:"customer_id" db:"customer_id"`
	BidPrice   decimal.Decimal `json:"bid_price" db:"bid_price"`
	BidTime    time.Time       `json:"bid_time" db:"bid_time"`
}

// Product is a read-only snapshot of a catalog product as seen by the
// auction core. The catalog collaborator owns the authoritative record.
type Product struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Active       bool            `json:"active"`
	UnderAuction bool            `json:"under_auction"`
}

// Customer is the directory's view of a bidder.
type Customer struct {
	CustomerID  string `json:"customer_id"`
	DisplayName string `json:"display_name"`
}
