package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	auctions "furniture-auction/internal/auctionService"
	model "furniture-auction/internal/models"
	"furniture-auction/services/auction/helpers"
	"furniture-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AuctionServiceInterface interface {
	RegisterAuction(ctx context.Context, productID string, startPrice decimal.Decimal, endTime time.Time, requestedBy string) (auctions.AuctionDetail, error)
	CancelAuction(ctx context.Context, auctionID, requestedBy, reason string) (model.Auction, error)
	UpdateAuction(ctx context.Context, auctionID string, newEndTime *time.Time, newStatus *model.AuctionStatus) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (auctions.AuctionDetail, error)
	ListAuctions(ctx context.Context, f auctions.ListFilter) ([]auctions.AuctionDetail, int, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// RegisterAuctionHandler handles POST /auctions
func (h *AuctionHandler) RegisterAuctionHandler(c *gin.Context) {
	var req helpers.RegisterAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterAuctionHandler", err)
		return
	}

	detail, err := h.service.RegisterAuction(c.Request.Context(), req.ProductID, req.StartPrice, req.EndTime, req.AdminID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("RegisterAuctionHandler: failed to register auction", map[string]any{
			"product_id": req.ProductID,
			"admin_id":   req.AdminID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.NewAuctionResponse(detail.Auction, &detail.Product, time.Now().UTC())

	utils.JSONResponse(c, http.StatusCreated, resp, "auction registered successfully")
	helpers.LogSuccess("RegisterAuctionHandler", "auction registered successfully", map[string]any{
		"auction_id": detail.Auction.AuctionID,
		"product_id": req.ProductID,
		"admin_id":   req.AdminID,
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	filter := auctions.ListFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
		Category: c.Query("category"),
		State:    model.ListingState(c.Query("state")),
	}

	details, total, err := h.service.ListAuctions(c.Request.Context(), filter)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	list := make([]helpers.AuctionResponse, 0, len(details))
	for _, d := range details {
		product := d.Product
		list = append(list, helpers.NewAuctionResponse(d.Auction, &product, now))
	}

	resp := helpers.AuctionListResponse{
		Auctions: list,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	detail, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := helpers.NewAuctionResponse(detail.Auction, &detail.Product, time.Now().UTC())
	utils.JSONResponse(c, http.StatusOK, resp, "auction retrieved successfully")
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CancelAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	cancelled, err := h.service.CancelAuction(c.Request.Context(), auctionID, req.AdminID, req.Reason)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CancelAuctionHandler: failed to cancel auction", map[string]any{
			"auction_id": auctionID,
			"admin_id":   req.AdminID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.NewAuctionResponse(cancelled, nil, time.Now().UTC())

	utils.JSONResponse(c, http.StatusOK, resp, "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{
		"auction_id": auctionID,
		"admin_id":   req.AdminID,
	})
}

// UpdateAuctionHandler handles PATCH /auctions/:auction_id
func (h *AuctionHandler) UpdateAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateAuctionHandler", err)
		return
	}

	var newStatus *model.AuctionStatus
	if req.Status != nil {
		status := model.AuctionStatus(*req.Status)
		if status != model.StatusCompleted && status != model.StatusCancelled {
			helpers.HandleBindError(c, "UpdateAuctionHandler", fmt.Errorf("unsupported status %q", *req.Status))
			return
		}
		newStatus = &status
	}

	updated, err := h.service.UpdateAuction(c.Request.Context(), auctionID, req.EndTime, newStatus)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("UpdateAuctionHandler: failed to update auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.NewAuctionResponse(updated, nil, time.Now().UTC())

	utils.JSONResponse(c, http.StatusOK, resp, "auction updated successfully")
	helpers.LogSuccess("UpdateAuctionHandler", "auction updated successfully", map[string]any{
		"auction_id": auctionID,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
