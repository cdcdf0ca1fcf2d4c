// Package sweeper finalizes auctions that have passed their end time. The
// sweep is a periodic, idempotent batch: an auction already out of
// PROCEEDING is never selected again, and a failed auction is simply
// retried on the next run.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"furniture-auction/internal/auctionerrors"
	"furniture-auction/internal/marketplace"
	model "furniture-auction/internal/models"
	"furniture-auction/internal/repository"
	"furniture-auction/utils"
)

// DefaultInterval is how often expired auctions are swept.
const DefaultInterval = 60 * time.Second

type Sweeper struct {
	repo     repository.AuctionDB
	catalog  marketplace.ProductCatalog
	notifier marketplace.NotificationSink
	interval time.Duration
}

// New creates a Sweeper. A non-positive interval falls back to
// DefaultInterval; notifier may be nil.
func New(repo repository.AuctionDB, catalog marketplace.ProductCatalog, notifier marketplace.NotificationSink, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{repo: repo, catalog: catalog, notifier: notifier, interval: interval}
}

// Start runs the sweep on a fixed interval until ctx is cancelled. The
// sweeper holds no state between runs; everything it needs is in the store.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("auction closing sweep started", map[string]any{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("auction closing sweep stopped", nil)
			return
		case <-ticker.C:
			if _, err := s.CloseExpiredAuctions(ctx); err != nil {
				utils.Error("sweep run failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// CloseExpiredAuctions finalizes every PROCEEDING auction whose end time has
// passed: highest bid wins and the auction completes, no bids cancels it.
// Auctions are processed independently; one failure is logged and skipped so
// siblings still close, and the failed auction stays PROCEEDING for the next
// run. Returns how many auctions were closed.
func (s *Sweeper) CloseExpiredAuctions(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := s.repo.FindExpiredProceeding(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep: failed to select expired auctions: %w", err)
	}

	closed := 0
	for _, auction := range expired {
		if err := s.closeOne(ctx, auction.AuctionID, now); err != nil {
			utils.Error("sweep: failed to close auction, will retry next run", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		closed++
	}
	return closed, nil
}

// closeOne finalizes a single auction under the same per-auction lock bid
// placement uses, so the closing decision cannot interleave with a bid
// accepted at the last instant.
func (s *Sweeper) closeOne(ctx context.Context, auctionID string, now time.Time) error {
	var winner model.Bid
	var hasWinner bool

	err := s.repo.WithAuctionLock(ctx, auctionID, func(store repository.AuctionDB) error {
		auction, err := store.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		// re-check under the lock: a concurrent cancel or earlier sweep
		// run may already have closed it
		if !auction.Expired(now) {
			return nil
		}

		highest, err := store.GetHighestBid(ctx, auctionID)
		switch {
		case err == nil:
			auction.Status = model.StatusCompleted
			winner, hasWinner = highest, true
			return store.UpdateAuction(ctx, auction)
		case errors.Is(err, auctionerrors.ErrNoBids):
			auction.Status = model.StatusCancelled
			auction.CancelReason = "no bids at auction end"
			// release the product before committing the terminal status:
			// a failed release leaves the auction PROCEEDING so the next
			// run retries the whole close
			if err := s.catalog.SetUnderAuction(ctx, auction.ProductID, false); err != nil {
				return err
			}
			if err := store.UpdateAuction(ctx, auction); err != nil {
				s.restoreFlag(ctx, auction.ProductID)
				return err
			}
			utils.Info("auction cancelled by sweep, no bids", map[string]any{
				"auction_id": auctionID,
				"product_id": auction.ProductID,
			})
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return err
	}

	if hasWinner {
		utils.Info("auction completed", map[string]any{
			"auction_id":    auctionID,
			"winner_id":     winner.CustomerID,
			"winning_price": winner.BidPrice.String(),
		})
		s.notifyWinner(ctx, winner)
	}
	return nil
}

// notifyWinner is best-effort: a delivery failure must not mark the close
// as failed, or the next run would re-close and re-notify.
func (s *Sweeper) notifyWinner(ctx context.Context, winner model.Bid) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAuctionWon(ctx, winner.CustomerID, winner.AuctionID, winner.BidPrice); err != nil {
		utils.Warn("sweep: failed to deliver winner notification", map[string]any{
			"auction_id":  winner.AuctionID,
			"customer_id": winner.CustomerID,
			"error":       err.Error(),
		})
	}
}

// restoreFlag re-marks the product as under auction after a close failed
// between releasing the flag and writing the terminal status. Best-effort:
// the auction is still PROCEEDING either way, so the next run retries.
func (s *Sweeper) restoreFlag(ctx context.Context, productID string) {
	if err := s.catalog.SetUnderAuction(ctx, productID, true); err != nil {
		utils.Error("sweep: failed to restore under-auction flag", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
	}
}
