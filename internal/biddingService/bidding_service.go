package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"furniture-auction/internal/auctionerrors"
	"furniture-auction/internal/marketplace"
	model "furniture-auction/internal/models"
	"furniture-auction/internal/repository"
	"furniture-auction/internal/tick"
	"furniture-auction/utils"

	"github.com/shopspring/decimal"
)

// RetryPolicy bounds how bid placement reacts to per-auction lock
// contention. A busy lock is retried up to MaxAttempts total attempts with
// Backoff between them; exhaustion surfaces ErrTooManyBidAttempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy matches the reference behavior: three attempts with a
// short pause between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 30 * time.Millisecond}
}

// PlacedBid is an accepted bid together with the bidder's directory record,
// so callers can render the display name without a second lookup.
type PlacedBid struct {
	Bid      model.Bid
	Customer model.Customer
}

// BiddingService validates and commits bids under per-auction concurrency
// control.
type BiddingService struct {
	repo      repository.AuctionDB
	customers marketplace.CustomerDirectory
	notifier  marketplace.NotificationSink
	ticks     tick.Table
	retry     RetryPolicy
}

// NewBiddingService creates a new BiddingService instance. notifier may be
// nil, in which case outbid notifications are skipped.
func NewBiddingService(
	repo repository.AuctionDB,
	customers marketplace.CustomerDirectory,
	notifier marketplace.NotificationSink,
	ticks tick.Table,
	retry RetryPolicy,
) *BiddingService {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &BiddingService{
		repo:      repo,
		customers: customers,
		notifier:  notifier,
		ticks:     ticks,
		retry:     retry,
	}
}

// PlaceBid commits a single bid on an auction. Validation and the
// current-price update happen inside the auction's exclusive lock so two
// concurrent bids can never both validate against the same stale price.
// A bid either commits exactly once or returns a specific error.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, customerID string, bidPrice decimal.Decimal) (PlacedBid, error) {
	if auctionID == "" || customerID == "" {
		return PlacedBid{}, fmt.Errorf("service: %w - missing auctionID or customerID", auctionerrors.ErrInvalidBid)
	}
	if bidPrice.Sign() <= 0 {
		return PlacedBid{}, fmt.Errorf("service: %w - non-positive bid price", auctionerrors.ErrInvalidBid)
	}

	var placed PlacedBid
	var outbid model.Bid
	var hasOutbid bool

	attempt := func(store repository.AuctionDB) error {
		auction, err := store.GetAuction(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}

		customer, err := s.customers.FindCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}

		if auction.Status != model.StatusProceeding {
			return fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrAuctionNotActive, auctionID, auction.Status)
		}

		// A customer re-submitting their own standing amount is a no-op
		// re-bid and must be reported as such, so this check runs before
		// the price checks.
		lastBid, err := store.GetLastBidByCustomer(ctx, auctionID, customerID)
		if err == nil && lastBid.BidPrice.Equal(bidPrice) {
			return fmt.Errorf("service: %w - already bid %s", auctionerrors.ErrDuplicateBidAmount, bidPrice)
		}
		if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
			return fmt.Errorf("service: failed to check previous bid: %w", err)
		}

		if !bidPrice.GreaterThan(auction.CurrentPrice) {
			return fmt.Errorf("service: %w - current price is %s", auctionerrors.ErrBidTooLow, auction.CurrentPrice)
		}

		minNext := s.ticks.MinimumNextBid(auction.CurrentPrice)
		if bidPrice.LessThan(minNext) {
			return fmt.Errorf("service: %w - minimum next bid is %s", auctionerrors.ErrBidIncrementTooSmall, minNext)
		}

		// prior leader, captured before the price is overwritten
		prev, err := store.GetHighestBid(ctx, auctionID)
		switch {
		case err == nil:
			outbid, hasOutbid = prev, true
		case errors.Is(err, auctionerrors.ErrNoBids):
			hasOutbid = false
		default:
			return fmt.Errorf("service: failed to read highest bid: %w", err)
		}

		bid := model.Bid{
			BidID:      utils.GenerateID(),
			AuctionID:  auctionID,
			CustomerID: customerID,
			BidPrice:   bidPrice,
			BidTime:    time.Now().UTC(),
		}
		if err := store.RecordBid(ctx, bid); err != nil {
			return fmt.Errorf("service: failed to record bid: %w", err)
		}

		auction.CurrentPrice = bidPrice
		if err := store.UpdateAuction(ctx, auction); err != nil {
			return fmt.Errorf("service: failed to update current price: %w", err)
		}

		placed = PlacedBid{Bid: bid, Customer: customer}
		return nil
	}

	for i := 1; ; i++ {
		err := s.repo.WithAuctionLock(ctx, auctionID, attempt)
		if err == nil {
			break
		}
		if !errors.Is(err, auctionerrors.ErrAuctionLocked) {
			return PlacedBid{}, err
		}
		if i >= s.retry.MaxAttempts {
			return PlacedBid{}, fmt.Errorf("service: %w - auction %s after %d attempts", auctionerrors.ErrTooManyBidAttempts, auctionID, i)
		}
		select {
		case <-ctx.Done():
			return PlacedBid{}, fmt.Errorf("service: bid placement interrupted: %w", ctx.Err())
		case <-time.After(s.retry.Backoff):
		}
	}

	s.notifyOutbid(outbid, hasOutbid, placed)
	return placed, nil
}

// notifyOutbid tells the displaced leader the price moved. Best effort:
// failures are logged, never propagated to the bidder.
func (s *BiddingService) notifyOutbid(outbid model.Bid, hasOutbid bool, placed PlacedBid) {
	if s.notifier == nil || !hasOutbid || outbid.CustomerID == placed.Bid.CustomerID {
		return
	}
	go func() {
		err := s.notifier.NotifyOutbid(context.Background(), outbid.CustomerID, outbid.AuctionID, placed.Bid.BidPrice)
		if err != nil {
			utils.Warn("failed to deliver outbid notification", map[string]any{
				"auction_id":  outbid.AuctionID,
				"customer_id": outbid.CustomerID,
				"error":       err.Error(),
			})
		}
	}()
}

// GetBidHistory returns all bids for an auction in acceptance order.
// Read-only: takes no lock and may trail an in-flight placement.
func (s *BiddingService) GetBidHistory(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the current highest bid for an auction. Lock-free.
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bid, err := s.repo.GetHighestBid(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}
