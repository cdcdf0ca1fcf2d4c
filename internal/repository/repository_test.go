package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"furniture-auction/internal/auctionerrors"
	model "furniture-auction/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func proceedingAuction(id, productID string, start int64, now time.Time) model.Auction {
	return model.Auction{
		AuctionID:    id,
		ProductID:    productID,
		Status:       model.StatusProceeding,
		StartPrice:   dec(start),
		CurrentPrice: dec(start),
		StartTime:    now,
		EndTime:      now.Add(time.Hour),
	}
}

func TestMemoryRepo_AuctionCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	auction := proceedingAuction("a1", "p1", 10_000, now)
	require.NoError(t, repo.CreateAuction(ctx, auction))

	// duplicate id rejected
	require.Error(t, repo.CreateAuction(ctx, auction))

	got, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, auction.ProductID, got.ProductID)
	require.True(t, got.CurrentPrice.Equal(dec(10_000)))

	_, err = repo.GetAuction(ctx, "missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	got.CurrentPrice = dec(12_000)
	require.NoError(t, repo.UpdateAuction(ctx, got))

	got, err = repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(dec(12_000)))

	err = repo.UpdateAuction(ctx, model.Auction{AuctionID: "missing"})
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestMemoryRepo_ListAuctions_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("old", "p1", 100, now.Add(-2*time.Hour))))
	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("new", "p2", 100, now)))
	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("mid", "p3", 100, now.Add(-time.Hour))))

	auctions, err := repo.ListAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, auctions, 3)
	require.Equal(t, "new", auctions[0].AuctionID)
	require.Equal(t, "mid", auctions[1].AuctionID)
	require.Equal(t, "old", auctions[2].AuctionID)
}

func TestMemoryRepo_FindOpenAuctionByProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	closed := proceedingAuction("a1", "p1", 100, now)
	closed.Status = model.StatusCancelled
	require.NoError(t, repo.CreateAuction(ctx, closed))
	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a2", "p1", 100, now)))

	open, err := repo.FindOpenAuctionByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "a2", open.AuctionID)

	_, err = repo.FindOpenAuctionByProduct(ctx, "p2")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestMemoryRepo_FindExpiredProceeding(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	expired := proceedingAuction("expired", "p1", 100, now.Add(-2*time.Hour))
	expired.EndTime = now.Add(-time.Hour)
	require.NoError(t, repo.CreateAuction(ctx, expired))

	stillOpen := proceedingAuction("open", "p2", 100, now)
	require.NoError(t, repo.CreateAuction(ctx, stillOpen))

	alreadyClosed := proceedingAuction("closed", "p3", 100, now.Add(-2*time.Hour))
	alreadyClosed.EndTime = now.Add(-time.Hour)
	alreadyClosed.Status = model.StatusCompleted
	require.NoError(t, repo.CreateAuction(ctx, alreadyClosed))

	due, err := repo.FindExpiredProceeding(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "expired", due[0].AuctionID)
}

func TestMemoryRepo_Bids(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a1", "p1", 100, now)))

	err := repo.RecordBid(ctx, model.Bid{BidID: "b0", AuctionID: "missing", CustomerID: "c1", BidPrice: dec(200), BidTime: now})
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	_, err = repo.GetBidsByAuction(ctx, "a1")
	require.ErrorIs(t, err, auctionerrors.ErrNoBids)

	_, err = repo.GetHighestBid(ctx, "a1")
	require.ErrorIs(t, err, auctionerrors.ErrNoBids)

	bids := []model.Bid{
		{BidID: "b1", AuctionID: "a1", CustomerID: "c1", BidPrice: dec(200), BidTime: now},
		{BidID: "b2", AuctionID: "a1", CustomerID: "c2", BidPrice: dec(400), BidTime: now.Add(time.Second)},
		{BidID: "b3", AuctionID: "a1", CustomerID: "c1", BidPrice: dec(300), BidTime: now.Add(2 * time.Second)},
	}
	for _, b := range bids {
		require.NoError(t, repo.RecordBid(ctx, b))
	}

	all, err := repo.GetBidsByAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "b1", all[0].BidID, "bids must come back in acceptance order")

	highest, err := repo.GetHighestBid(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "b2", highest.BidID)

	last, err := repo.GetLastBidByCustomer(ctx, "a1", "c1")
	require.NoError(t, err)
	require.Equal(t, "b3", last.BidID)

	_, err = repo.GetLastBidByCustomer(ctx, "a1", "nobody")
	require.ErrorIs(t, err, auctionerrors.ErrNoBids)
}

func TestMemoryRepo_GetHighestBid_TieGoesToEarliest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a1", "p1", 100, now)))
	require.NoError(t, repo.RecordBid(ctx, model.Bid{BidID: "late", AuctionID: "a1", CustomerID: "c2", BidPrice: dec(500), BidTime: now.Add(time.Second)}))
	require.NoError(t, repo.RecordBid(ctx, model.Bid{BidID: "early", AuctionID: "a1", CustomerID: "c1", BidPrice: dec(500), BidTime: now}))

	highest, err := repo.GetHighestBid(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "early", highest.BidID)
}

func TestMemoryRepo_WithAuctionLock(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a1", "p1", 100, now)))

	// missing auction fails before the lock is touched
	err := repo.WithAuctionLock(ctx, "missing", func(AuctionDB) error { return nil })
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	// fn errors propagate
	boom := errors.New("boom")
	err = repo.WithAuctionLock(ctx, "a1", func(AuctionDB) error { return boom })
	require.ErrorIs(t, err, boom)

	// a held lock surfaces as ErrAuctionLocked instead of blocking
	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = repo.WithAuctionLock(ctx, "a1", func(AuctionDB) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	err = repo.WithAuctionLock(ctx, "a1", func(AuctionDB) error { return nil })
	require.ErrorIs(t, err, auctionerrors.ErrAuctionLocked)
	close(release)
	wg.Wait()

	// released lock can be reacquired
	require.NoError(t, repo.WithAuctionLock(ctx, "a1", func(AuctionDB) error { return nil }))
}

func TestMemoryRepo_WithAuctionLock_WritesStickOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a1", "p1", 100, now)))

	// the in-memory store has no transaction: a write made before fn fails
	// is not undone, so callers must validate before writing
	boom := errors.New("boom")
	err := repo.WithAuctionLock(ctx, "a1", func(store AuctionDB) error {
		auction, err := store.GetAuction(ctx, "a1")
		require.NoError(t, err)
		auction.CurrentPrice = dec(250)
		require.NoError(t, store.UpdateAuction(ctx, auction))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(dec(250)))
}

func TestMemoryRepo_LocksAreIndependentPerAuction(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a1", "p1", 100, now)))
	require.NoError(t, repo.CreateAuction(ctx, proceedingAuction("a2", "p2", 100, now)))

	err := repo.WithAuctionLock(ctx, "a1", func(store AuctionDB) error {
		// holding a1 must not contend with a2
		return repo.WithAuctionLock(ctx, "a2", func(AuctionDB) error { return nil })
	})
	require.NoError(t, err)
}
