package server

import (
	auctions "furniture-auction/internal/auctionService"
	bidding "furniture-auction/internal/biddingService"
	handler "furniture-auction/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionService *auctions.AuctionService, biddingService *bidding.BiddingService) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctionService)
	biddingHandler := handler.NewBiddingHandler(biddingService)

	a := router.Group("/auctions")
	{
		a.POST("", auctionHandler.RegisterAuctionHandler)
		a.GET("", auctionHandler.ListAuctionsHandler)
		a.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		a.PATCH("/:auction_id", auctionHandler.UpdateAuctionHandler)
		a.POST("/:auction_id/cancel", auctionHandler.CancelAuctionHandler)

		a.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		a.GET("/:auction_id/bids", biddingHandler.GetBidHistoryHandler)
		a.GET("/:auction_id/winning", biddingHandler.GetWinningBidHandler)
	}

	return router
}
