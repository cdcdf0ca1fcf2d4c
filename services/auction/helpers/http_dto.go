package helpers

import (
	"time"

	model "furniture-auction/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	CustomerID string          `json:"customer_id" binding:"required"`
	BidPrice   decimal.Decimal `json:"bid_price" binding:"required"`
}

type BidResponse struct {
	BidID        string          `json:"bid_id"`
	AuctionID    string          `json:"auction_id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	BidPrice     decimal.Decimal `json:"bid_price"`
	BidTime      string          `json:"bid_time"`
}

type RegisterAuctionRequest struct {
	ProductID  string          `json:"product_id" binding:"required"`
	StartPrice decimal.Decimal `json:"start_price"`
	EndTime    time.Time       `json:"end_time" binding:"required"`
	AdminID    string          `json:"admin_id" binding:"required"`
}

type CancelAuctionRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

type UpdateAuctionRequest struct {
	EndTime *time.Time `json:"end_time"`
	Status  *string    `json:"status"`
}

type AuctionResponse struct {
	AuctionID    string          `json:"auction_id"`
	ProductID    string          `json:"product_id"`
	Status       string          `json:"status"`
	State        string          `json:"state"`
	StartPrice   decimal.Decimal `json:"start_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CancelledBy  string          `json:"cancelled_by,omitempty"`
	Product      *model.Product  `json:"product,omitempty"`
}

type AuctionListResponse struct {
	Auctions []AuctionResponse `json:"auctions"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

// NewBidResponse maps an accepted bid (plus the bidder's display name) to
// its wire shape.
func NewBidResponse(bid model.Bid, customerName string) BidResponse {
	return BidResponse{
		BidID:        bid.BidID,
		AuctionID:    bid.AuctionID,
		CustomerID:   bid.CustomerID,
		CustomerName: customerName,
		BidPrice:     bid.BidPrice,
		BidTime:      bid.BidTime.UTC().Format(time.RFC3339),
	}
}

// NewAuctionResponse maps an auction, merged with its product snapshot, to
// its wire shape. The state field is derived at response time.
func NewAuctionResponse(auction model.Auction, product *model.Product, now time.Time) AuctionResponse {
	return AuctionResponse{
		AuctionID:    auction.AuctionID,
		ProductID:    auction.ProductID,
		Status:       string(auction.Status),
		State:        string(auction.ListingStateAt(now)),
		StartPrice:   auction.StartPrice,
		CurrentPrice: auction.CurrentPrice,
		StartTime:    auction.StartTime.UTC().Format(time.RFC3339),
		EndTime:      auction.EndTime.UTC().Format(time.RFC3339),
		CancelReason: auction.CancelReason,
		CancelledBy:  auction.CancelledBy,
		Product:      product,
	}
}
