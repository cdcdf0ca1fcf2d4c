package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"furniture-auction/internal/auctionerrors"
	model "furniture-auction/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// The per-auction exclusive lock is a keyed mutex acquired with TryLock so
// contention surfaces as ErrAuctionLocked instead of blocking the caller.
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
	bids     map[string][]model.Bid   // key: auctionID -> bids in acceptance order

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex // key: auctionID -> exclusive-access lock
}

// NewMemoryRepo creates a new in-memory repository instance.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		locks:    make(map[string]*sync.Mutex),
	}
}

// CreateAuction stores a new auction record.
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: id already exists", auction.AuctionID)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given id.
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// UpdateAuction overwrites the stored auction row.
func (r *MemoryRepo) UpdateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// ListAuctions returns all auctions ordered by start time, newest first.
func (r *MemoryRepo) ListAuctions(_ context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, a)
	}
	sortAuctionsByStartDesc(out)
	return out, nil
}

// FindOpenAuctionByProduct returns the PROCEEDING auction for a product.
func (r *MemoryRepo) FindOpenAuctionByProduct(_ context.Context, productID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.auctions {
		if a.ProductID == productID && a.Status == model.StatusProceeding {
			return a, nil
		}
	}
	return model.Auction{}, fmt.Errorf("open auction for product %s: %w", productID, auctionerrors.ErrAuctionNotFound)
}

// FindExpiredProceeding returns auctions still PROCEEDING past their end time.
func (r *MemoryRepo) FindExpiredProceeding(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Auction
	for _, a := range r.auctions {
		if a.Expired(now) {
			out = append(out, a)
		}
	}
	sortAuctionsByStartDesc(out)
	return out, nil
}

// RecordBid appends an accepted bid for its auction.
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// GetBidsByAuction returns all bids for an auction in acceptance order.
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// GetHighestBid returns the highest-priced bid for an auction; the earliest
// bid wins a price tie.
func (r *MemoryRepo) GetHighestBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}

	highest := bids[0]
	for _, b := range bids[1:] {
		if b.BidPrice.GreaterThan(highest.BidPrice) ||
			(b.BidPrice.Equal(highest.BidPrice) && b.BidTime.Before(highest.BidTime)) {
			highest = b
		}
	}
	return highest, nil
}

// GetLastBidByCustomer returns the customer's most recent bid on an auction.
func (r *MemoryRepo) GetLastBidByCustomer(_ context.Context, auctionID, customerID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := r.bids[auctionID]
	for i := len(bids) - 1; i >= 0; i-- {
		if bids[i].CustomerID == customerID {
			return bids[i], nil
		}
	}
	return model.Bid{}, fmt.Errorf("last bid by customer %s on auction %s: %w", customerID, auctionID, auctionerrors.ErrNoBids)
}

// WithAuctionLock grants fn exclusive access to one auction. The auction
// must exist; a held lock fails fast with ErrAuctionLocked. fn operates on
// the live store, so writes stick even when fn returns an error — there is
// no transaction to roll back here.
func (r *MemoryRepo) WithAuctionLock(ctx context.Context, auctionID string, fn func(store AuctionDB) error) error {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return err
	}

	lock := r.auctionLock(auctionID)
	if !lock.TryLock() {
		return fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionLocked)
	}
	defer lock.Unlock()

	return fn(r)
}

func (r *MemoryRepo) auctionLock(auctionID string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	lock, ok := r.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[auctionID] = lock
	}
	return lock
}

func sortAuctionsByStartDesc(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].StartTime.After(auctions[j].StartTime)
	})
}
