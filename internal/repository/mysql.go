package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"furniture-auction/internal/auctionerrors"
	model "furniture-auction/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQL error numbers signalling that a row lock could not be granted.
const (
	mysqlErrLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlErrLockNowait      = 3572 // ER_LOCK_NOWAIT
)

// MySQLRepo is the SQL-backed implementation of AuctionDB. The per-auction
// exclusive lock maps onto an InnoDB row lock taken with
// SELECT ... FOR UPDATE NOWAIT inside a transaction that spans the locked
// section.
//
// Expected schema:
//
//	auctions (auction_id VARCHAR PK, product_id VARCHAR, status VARCHAR,
//	          start_price DECIMAL(19,4), current_price DECIMAL(19,4),
//	          start_time DATETIME, end_time DATETIME,
//	          cancel_reason VARCHAR, cancelled_by VARCHAR)
//	bids     (bid_id VARCHAR PK, auction_id VARCHAR, customer_id VARCHAR,
//	          bid_price DECIMAL(19,4), bid_time DATETIME(6))
type MySQLRepo struct {
	db *sqlx.DB
	q  sqlx.ExtContext // db outside a locked section, tx inside one
}

// NewMySQLRepo wraps an open sqlx handle.
func NewMySQLRepo(db *sqlx.DB) *MySQLRepo {
	return &MySQLRepo{db: db, q: db}
}

func (r *MySQLRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO auctions (auction_id, product_id, status, start_price, current_price,
		                      start_time, end_time, cancel_reason, cancelled_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		auction.AuctionID, auction.ProductID, auction.Status, auction.StartPrice,
		auction.CurrentPrice, auction.StartTime, auction.EndTime,
		auction.CancelReason, auction.CancelledBy,
	)
	if err != nil {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

func (r *MySQLRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var auction model.Auction
	err := sqlx.GetContext(ctx, r.q, &auction,
		`SELECT * FROM auctions WHERE auction_id = ?`, auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

func (r *MySQLRepo) UpdateAuction(ctx context.Context, auction model.Auction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auctions
		SET status = ?, current_price = ?, end_time = ?, cancel_reason = ?, cancelled_by = ?
		WHERE auction_id = ?`,
		auction.Status, auction.CurrentPrice, auction.EndTime,
		auction.CancelReason, auction.CancelledBy, auction.AuctionID,
	)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// zero rows means either a missing row or an identical write
		if _, err := r.GetAuction(ctx, auction.AuctionID); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	var auctions []model.Auction
	err := sqlx.SelectContext(ctx, r.q, &auctions,
		`SELECT * FROM auctions ORDER BY start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return auctions, nil
}

func (r *MySQLRepo) FindOpenAuctionByProduct(ctx context.Context, productID string) (model.Auction, error) {
	var auction model.Auction
	err := sqlx.GetContext(ctx, r.q, &auction,
		`SELECT * FROM auctions WHERE product_id = ? AND status = ? LIMIT 1`,
		productID, model.StatusProceeding)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("open auction for product %s: %w", productID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("open auction for product %s: %w", productID, err)
	}
	return auction, nil
}

func (r *MySQLRepo) FindExpiredProceeding(ctx context.Context, now time.Time) ([]model.Auction, error) {
	var auctions []model.Auction
	err := sqlx.SelectContext(ctx, r.q, &auctions,
		`SELECT * FROM auctions WHERE status = ? AND end_time <= ? ORDER BY end_time`,
		model.StatusProceeding, now)
	if err != nil {
		return nil, fmt.Errorf("find expired auctions: %w", err)
	}
	return auctions, nil
}

func (r *MySQLRepo) RecordBid(ctx context.Context, bid model.Bid) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO bids (bid_id, auction_id, customer_id, bid_price, bid_time)
		VALUES (?, ?, ?, ?, ?)`,
		bid.BidID, bid.AuctionID, bid.CustomerID, bid.BidPrice, bid.BidTime,
	)
	if err != nil {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, err)
	}
	return nil
}

func (r *MySQLRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := sqlx.SelectContext(ctx, r.q, &bids,
		`SELECT * FROM bids WHERE auction_id = ? ORDER BY bid_time`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

func (r *MySQLRepo) GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error) {
	var bid model.Bid
	err := sqlx.GetContext(ctx, r.q, &bid, `
		SELECT * FROM bids WHERE auction_id = ?
		ORDER BY bid_price DESC, bid_time ASC LIMIT 1`, auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

func (r *MySQLRepo) GetLastBidByCustomer(ctx context.Context, auctionID, customerID string) (model.Bid, error) {
	var bid model.Bid
	err := sqlx.GetContext(ctx, r.q, &bid, `
		SELECT * FROM bids WHERE auction_id = ? AND customer_id = ?
		ORDER BY bid_time DESC LIMIT 1`, auctionID, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("last bid by customer %s on auction %s: %w", customerID, auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("last bid by customer %s on auction %s: %w", customerID, auctionID, err)
	}
	return bid, nil
}

// WithAuctionLock runs fn inside a transaction holding the auction's row
// lock. NOWAIT turns contention into an immediate ErrAuctionLocked so the
// caller's retry policy stays in control.
func (r *MySQLRepo) WithAuctionLock(ctx context.Context, auctionID string, fn func(store AuctionDB) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lock auction %s: begin tx: %w", auctionID, err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.GetContext(ctx, &locked,
		`SELECT auction_id FROM auctions WHERE auction_id = ? FOR UPDATE NOWAIT`, auctionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	case isLockConflict(err):
		return fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionLocked)
	case err != nil:
		return fmt.Errorf("lock auction %s: %w", auctionID, err)
	}

	if err := fn(&MySQLRepo{db: r.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lock auction %s: commit: %w", auctionID, err)
	}
	return nil
}

func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlErrLockNowait || me.Number == mysqlErrLockWaitTimeout
}
