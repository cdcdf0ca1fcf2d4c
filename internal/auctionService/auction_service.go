package auctions

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

	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuctionDetail is an auction merged with a read-only snapshot of the
// product it sells.
type AuctionDetail struct {
	Auction model.Auction
	Product model.Product
}

// ListFilter narrows and pages the admin auction listing. State filters on
// the derived listing state, not the stored status.
type ListFilter struct {
	Page     int
	PageSize int
	Category string
	State    model.ListingState
}

// AuctionService owns auction registration, cancellation and manual update.
// Every path that creates or closes an auction also flips the product's
// under-auction flag so the two never diverge.
type AuctionService struct {
	repo    repository.AuctionDB
	catalog marketplace.ProductCatalog
}

// NewAuctionService creates a new AuctionService instance.
func NewAuctionService(repo repository.AuctionDB, catalog marketplace.ProductCatalog) *AuctionService {
	return &AuctionService{repo: repo, catalog: catalog}
}

// RegisterAuction opens a PROCEEDING auction for an active product that is
// not already under auction. The current price starts at the start price.
func (s *AuctionService) RegisterAuction(ctx context.Context, productID string, startPrice decimal.Decimal, endTime time.Time, requestedBy string) (AuctionDetail, error) {
	if productID == "" {
		return AuctionDetail{}, fmt.Errorf("service: %w - missing productID", auctionerrors.ErrInvalidAuction)
	}
	if startPrice.Sign() < 0 {
		return AuctionDetail{}, fmt.Errorf("service: %w - negative start price", auctionerrors.ErrInvalidAuction)
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return AuctionDetail{}, fmt.Errorf("service: %w", err)
	}

	if _, err := s.repo.FindOpenAuctionByProduct(ctx, productID); err == nil {
		return AuctionDetail{}, fmt.Errorf("service: %w - product %s", auctionerrors.ErrAuctionAlreadyActive, productID)
	} else if !errors.Is(err, auctionerrors.ErrAuctionNotFound) {
		return AuctionDetail{}, fmt.Errorf("service: failed to check open auctions: %w", err)
	}

	if !product.Active {
		return AuctionDetail{}, fmt.Errorf("service: %w - product %s is inactive", auctionerrors.ErrProductNotEligible, productID)
	}

	now := time.Now().UTC()
	if !endTime.After(now) {
		return AuctionDetail{}, fmt.Errorf("service: %w", auctionerrors.ErrEndTimeNotFuture)
	}

	auction := model.Auction{
		AuctionID:    utils.GenerateID(),
		ProductID:    productID,
		Status:       model.StatusProceeding,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		StartTime:    now,
		EndTime:      endTime,
	}

	// flag first, auction second: a failed create is compensated below,
	// so the flag and the open auction cannot end up diverged
	if err := s.catalog.SetUnderAuction(ctx, productID, true); err != nil {
		return AuctionDetail{}, fmt.Errorf("service: failed to mark product under auction: %w", err)
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		if clearErr := s.catalog.SetUnderAuction(ctx, productID, false); clearErr != nil {
			utils.Error("failed to clear under-auction flag after create failure", map[string]any{
				"product_id": productID,
				"error":      clearErr.Error(),
			})
		}
		return AuctionDetail{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("auction registered", map[string]any{
		"auction_id":  auction.AuctionID,
		"product_id":  productID,
		"start_price": startPrice.String(),
		"end_time":    endTime.UTC().Format(time.RFC3339),
		"admin_id":    requestedBy,
	})

	product.UnderAuction = true
	return AuctionDetail{Auction: auction, Product: product}, nil
}

// CancelAuction closes a PROCEEDING auction on admin request, recording the
// actor and reason and releasing the product's under-auction flag. It takes
// the same per-auction lock as bid placement so a cancel cannot interleave
// with an in-flight bid.
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID, requestedBy, reason string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing auctionID", auctionerrors.ErrInvalidAuction)
	}

	var cancelled model.Auction
	err := s.repo.WithAuctionLock(ctx, auctionID, func(store repository.AuctionDB) error {
		auction, err := store.GetAuction(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if auction.Status != model.StatusProceeding {
			return fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrAuctionAlreadyClosed, auctionID, auction.Status)
		}

		auction.Status = model.StatusCancelled
		auction.CancelReason = reason
		auction.CancelledBy = requestedBy
		// flag first, status second: if the release fails the auction
		// stays PROCEEDING and the admin can retry; if the status write
		// fails the flag is restored below
		if err := s.catalog.SetUnderAuction(ctx, auction.ProductID, false); err != nil {
			return fmt.Errorf("service: failed to release under-auction flag: %w", err)
		}
		if err := store.UpdateAuction(ctx, auction); err != nil {
			s.restoreUnderAuction(ctx, auction.ProductID)
			return fmt.Errorf("service: failed to cancel auction: %w", err)
		}
		cancelled = auction
		return nil
	})
	if err != nil {
		return model.Auction{}, err
	}

	utils.Info("auction cancelled", map[string]any{
		"auction_id": auctionID,
		"admin_id":   requestedBy,
		"reason":     reason,
	})
	return cancelled, nil
}

// UpdateAuction changes the end time and/or forces a terminal status while
// the auction is still PROCEEDING.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID string, newEndTime *time.Time, newStatus *model.AuctionStatus) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing auctionID", auctionerrors.ErrInvalidAuction)
	}
	if newEndTime == nil && newStatus == nil {
		return model.Auction{}, fmt.Errorf("service: %w - nothing to update", auctionerrors.ErrInvalidAuction)
	}
	if newStatus != nil && !newStatus.Terminal() {
		return model.Auction{}, fmt.Errorf("service: %w - status may only move to a terminal state", auctionerrors.ErrInvalidAuction)
	}

	var updated model.Auction
	err := s.repo.WithAuctionLock(ctx, auctionID, func(store repository.AuctionDB) error {
		auction, err := store.GetAuction(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if auction.Status != model.StatusProceeding {
			return fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrAuctionAlreadyClosed, auctionID, auction.Status)
		}

		if newEndTime != nil {
			if !newEndTime.After(time.Now().UTC()) {
				return fmt.Errorf("service: %w", auctionerrors.ErrEndTimeNotFuture)
			}
			auction.EndTime = newEndTime.UTC()
		}
		releasing := newStatus != nil && *newStatus == model.StatusCancelled
		if newStatus != nil {
			auction.Status = *newStatus
		}
		if releasing {
			if err := s.catalog.SetUnderAuction(ctx, auction.ProductID, false); err != nil {
				return fmt.Errorf("service: failed to release under-auction flag: %w", err)
			}
		}
		if err := store.UpdateAuction(ctx, auction); err != nil {
			if releasing {
				s.restoreUnderAuction(ctx, auction.ProductID)
			}
			return fmt.Errorf("service: failed to update auction: %w", err)
		}
		updated = auction
		return nil
	})
	if err != nil {
		return model.Auction{}, err
	}
	return updated, nil
}

// restoreUnderAuction re-marks the product after a terminal status write
// failed between the flag release and the store update. Best-effort: the
// auction is still PROCEEDING, so the caller can retry the whole operation.
func (s *AuctionService) restoreUnderAuction(ctx context.Context, productID string) {
	if err := s.catalog.SetUnderAuction(ctx, productID, true); err != nil {
		utils.Error("failed to restore under-auction flag after cancel failure", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
	}
}

// GetAuction returns one auction merged with its product snapshot.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (AuctionDetail, error) {
	if auctionID == "" {
		return AuctionDetail{}, fmt.Errorf("service: %w - missing auctionID", auctionerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return AuctionDetail{}, fmt.Errorf("service: %w", err)
	}
	product, err := s.catalog.FindProduct(ctx, auction.ProductID)
	if err != nil {
		return AuctionDetail{}, fmt.Errorf("service: %w", err)
	}
	return AuctionDetail{Auction: auction, Product: product}, nil
}

// ListAuctions pages through auctions newest first, optionally narrowed by
// product category and derived listing state. Returns the page and the
// total match count. Read-only: no lock, the snapshot may trail concurrent
// bids.
func (s *AuctionService) ListAuctions(ctx context.Context, f ListFilter) ([]AuctionDetail, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	auctions, err := s.repo.ListAuctions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	now := time.Now().UTC()
	matched := make([]AuctionDetail, 0, len(auctions))
	for _, a := range auctions {
		if f.State != "" && a.ListingStateAt(now) != f.State {
			continue
		}
		product, err := s.catalog.FindProduct(ctx, a.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("service: %w", err)
		}
		if f.Category != "" && product.Category != f.Category {
			continue
		}
		matched = append(matched, AuctionDetail{Auction: a, Product: product})
	}

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []AuctionDetail{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
