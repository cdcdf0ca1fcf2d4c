package repository

import (
	"context"
	"time"

	model "furniture-auction/internal/models"
)

// AuctionDB is the persistence interface for auctions and bids.
//
// WithAuctionLock is the concurrency primitive the bid placement service and
// the closing sweep build on: it grants fn exclusive access to the named
// auction for the duration of the call. Acquisition is non-blocking — if a
// concurrent holder exists the call fails immediately with
// auctionerrors.ErrAuctionLocked and the caller decides whether to retry.
// fn receives a store bound to the same locked scope (for SQL backends, the
// surrounding transaction). The lock guarantees mutual exclusion only:
// whether writes made through the store survive an fn error depends on the
// backend (SQL backends roll back the transaction, the in-memory store
// applies writes immediately). Callers must finish validating before they
// write.
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	UpdateAuction(ctx context.Context, auction model.Auction) error
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	FindOpenAuctionByProduct(ctx context.Context, productID string) (model.Auction, error)
	FindExpiredProceeding(ctx context.Context, now time.Time) ([]model.Auction, error)

	RecordBid(ctx context.Context, bid model.Bid) error
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetLastBidByCustomer(ctx context.Context, auctionID, customerID string) (model.Bid, error)

	WithAuctionLock(ctx context.Context, auctionID string, fn func(store AuctionDB) error) error
}
