package auctionerrors

import "errors"

// Not-found errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrNoBids           = errors.New("no bids found for auction")
)

// Validation errors — returned synchronously, never retried
var (
	ErrInvalidBid           = errors.New("invalid bid")
	ErrInvalidAuction       = errors.New("invalid auction parameters")
	ErrBidTooLow            = errors.New("bid price not above current price")
	ErrBidIncrementTooSmall = errors.New("bid price below minimum increment")
	ErrDuplicateBidAmount   = errors.New("same bid amount as previous bid")
	ErrProductNotEligible   = errors.New("product not eligible for auction")
	ErrEndTimeNotFuture     = errors.New("auction end time must be in the future")
)

// State-conflict errors
var (
	ErrAuctionNotActive     = errors.New("auction is not proceeding")
	ErrAuctionAlreadyClosed = errors.New("auction already closed")
	ErrAuctionAlreadyActive = errors.New("product already has an active auction")
)

// Concurrency errors. ErrAuctionLocked is the store-level signal that the
// per-auction lock is held; ErrTooManyBidAttempts is what the caller sees
// once the retry budget is exhausted.
var (
	ErrAuctionLocked      = errors.New("auction is locked by a concurrent operation")
	ErrTooManyBidAttempts = errors.New("too many concurrent bids, please retry")
)
