package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"furniture-auction/internal/auctionerrors"
	"furniture-auction/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Validation failures are 400 so the client can re-prompt for a valid
// amount; state and concurrency conflicts are 409; lookups are 404.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrCustomerNotFound):
		return http.StatusNotFound, "customer not found"
	case errors.Is(err, auctionerrors.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusBadRequest, "bid price must exceed current price"
	case errors.Is(err, auctionerrors.ErrBidIncrementTooSmall):
		return http.StatusBadRequest, "bid price below minimum increment"
	case errors.Is(err, auctionerrors.ErrDuplicateBidAmount):
		return http.StatusBadRequest, "same amount as your previous bid"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrProductNotEligible):
		return http.StatusBadRequest, "product not eligible for auction"
	case errors.Is(err, auctionerrors.ErrEndTimeNotFuture):
		return http.StatusBadRequest, "end time must be in the future"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrAuctionAlreadyClosed):
		return http.StatusConflict, "auction already closed"
	case errors.Is(err, auctionerrors.ErrAuctionAlreadyActive):
		return http.StatusConflict, "product already has an active auction"
	case errors.Is(err, auctionerrors.ErrTooManyBidAttempts),
		errors.Is(err, auctionerrors.ErrAuctionLocked):
		return http.StatusConflict, "auction is busy, please retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
