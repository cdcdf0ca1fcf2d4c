package integrationtests

import (
	"net/http"
	"testing"
	"time"

	model "furniture-auction/internal/models"
	"furniture-auction/services/auction/helpers"

	"github.com/stretchr/testify/require"
)

// RegisterAuctionHandler Tests
func TestRegisterAuctionAPI(t *testing.T) {
	endTime := time.Now().UTC().Add(24 * time.Hour)

	tests := []struct {
		name       string
		request    any
		wantStatus int
	}{
		{
			name: "Valid_Registration",
			request: helpers.RegisterAuctionRequest{
				ProductID:  "sofa1",
				StartPrice: dec("10000"),
				EndTime:    endTime,
				AdminID:    "admin1",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "Invalid_JSON",
			request:    "{product_id: 'missing quotes'}",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown_Product",
			request: helpers.RegisterAuctionRequest{
				ProductID:  "nonexistent",
				StartPrice: dec("10000"),
				EndTime:    endTime,
				AdminID:    "admin1",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "Inactive_Product",
			request: helpers.RegisterAuctionRequest{
				ProductID:  "chair1",
				StartPrice: dec("4000"),
				EndTime:    endTime,
				AdminID:    "admin1",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "End_Time_In_Past",
			request: helpers.RegisterAuctionRequest{
				ProductID:  "sofa1",
				StartPrice: dec("10000"),
				EndTime:    time.Now().UTC().Add(-time.Hour),
				AdminID:    "admin1",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, customers := defaultMarketplace()
			router := SetupTestRouter(products, customers)

			resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions", tt.request)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.NotEmpty(t, data["auction_id"])
				require.Equal(t, "sofa1", data["product_id"])
				require.Equal(t, string(model.StatusProceeding), data["status"])
				require.Equal(t, string(model.ListingOnAuction), data["state"])
				require.Equal(t, "10000", data["current_price"])

				_, err := time.Parse(time.RFC3339, data["end_time"].(string))
				require.NoError(t, err)
			}
		})
	}
}

func TestRegisterAuctionAPI_SecondAuctionForSameProduct(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	RegisterAuction(t, router, "sofa1", "10000", endTime)

	_, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions", helpers.RegisterAuctionRequest{
		ProductID:  "sofa1",
		StartPrice: dec("9000"),
		EndTime:    endTime,
		AdminID:    "admin1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

// PlaceBidHandler Tests: a full bidding session against one auction,
// exercising the tick-size and duplicate-amount rules end to end.
func TestPlaceBidFlow(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	auctionID := RegisterAuction(t, router, "sofa1", "10000", endTime)

	bidsURL := "/auctions/" + auctionID + "/bids"

	// Opening bid well above the minimum increment.
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "cust1", BidPrice: dec("12000")})
	require.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, "12000", data["bid_price"])
	require.Equal(t, "Alice", data["customer_name"])

	// Same customer repeating their own amount is rejected.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "cust1", BidPrice: dec("12000")})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Below the current price.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "cust2", BidPrice: dec("11000")})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Above the current price but below current + tick (12000 + 500).
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "cust2", BidPrice: dec("12300")})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Valid overtake.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "cust2", BidPrice: dec("13000")})
	require.Equal(t, http.StatusCreated, w.Code)

	// Unknown customer.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, bidsURL,
		helpers.PlaceBidRequest{CustomerID: "nonexistent", BidPrice: dec("14000")})
	require.Equal(t, http.StatusNotFound, w.Code)

	// History holds both accepted bids, oldest first.
	resp, w = ExecuteRequestAndParse(t, router, http.MethodGet, bidsURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := resp["data"].([]any)
	require.Len(t, bids, 2)
	first := bids[0].(map[string]any)
	require.Equal(t, "cust1", first["customer_id"])

	// Winning bid is the later, higher one.
	resp, w = ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions/"+auctionID+"/winning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	winning := resp["data"].(map[string]any)
	require.Equal(t, "cust2", winning["customer_id"])
	require.Equal(t, "13000", winning["bid_price"])

	// Auction detail reflects the new current price.
	resp, w = ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := resp["data"].(map[string]any)
	require.Equal(t, "13000", detail["current_price"])
}

func TestGetWinningBidAPI_NoBids(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	auctionID := RegisterAuction(t, router, "sofa1", "10000", endTime)

	_, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions/"+auctionID+"/winning", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 0)
}

// CancelAuctionHandler Tests
func TestCancelAuctionAPI(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	auctionID := RegisterAuction(t, router, "sofa1", "10000", endTime)

	cancelURL := "/auctions/" + auctionID + "/cancel"

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, cancelURL,
		helpers.CancelAuctionRequest{AdminID: "admin1", Reason: "listing withdrawn"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, string(model.StatusCancelled), data["status"])
	require.Equal(t, string(model.ListingEnded), data["state"])
	require.Equal(t, "listing withdrawn", data["cancel_reason"])
	require.Equal(t, "admin1", data["cancelled_by"])

	// Bidding on a cancelled auction is a state conflict.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{CustomerID: "cust1", BidPrice: dec("11000")})
	require.Equal(t, http.StatusConflict, w.Code)

	// A second cancel is rejected.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPost, cancelURL,
		helpers.CancelAuctionRequest{AdminID: "admin1", Reason: "again"})
	require.Equal(t, http.StatusConflict, w.Code)

	// The product is free again, so a fresh auction can be registered.
	RegisterAuction(t, router, "sofa1", "9000", endTime)
}

// UpdateAuctionHandler Tests
func TestUpdateAuctionAPI(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	auctionID := RegisterAuction(t, router, "sofa1", "10000", endTime)

	newEnd := endTime.Add(24 * time.Hour)
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPatch, "/auctions/"+auctionID,
		helpers.UpdateAuctionRequest{EndTime: &newEnd})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	got, err := time.Parse(time.RFC3339, data["end_time"].(string))
	require.NoError(t, err)
	require.WithinDuration(t, newEnd, got, time.Second)

	// Force-cancel through the update endpoint.
	status := string(model.StatusCancelled)
	resp, w = ExecuteRequestAndParse(t, router, http.MethodPatch, "/auctions/"+auctionID,
		helpers.UpdateAuctionRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]any)
	require.Equal(t, string(model.StatusCancelled), data["status"])

	// Further updates are rejected once the auction is closed.
	_, w = ExecuteRequestAndParse(t, router, http.MethodPatch, "/auctions/"+auctionID,
		helpers.UpdateAuctionRequest{EndTime: &newEnd})
	require.Equal(t, http.StatusConflict, w.Code)
}

// ListAuctionsHandler Tests
func TestListAuctionsAPI(t *testing.T) {
	products, customers := defaultMarketplace()
	router := SetupTestRouter(products, customers)

	endTime := time.Now().UTC().Add(24 * time.Hour)
	RegisterAuction(t, router, "sofa1", "10000", endTime)
	RegisterAuction(t, router, "desk1", "5000", endTime)

	t.Run("All", func(t *testing.T) {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Equal(t, float64(2), data["total"])
		require.Len(t, data["auctions"].([]any), 2)
	})

	t.Run("By_Category", func(t *testing.T) {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions?category=desks", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		auctionsList := data["auctions"].([]any)
		require.Len(t, auctionsList, 1)
		entry := auctionsList[0].(map[string]any)
		require.Equal(t, "desk1", entry["product_id"])
	})

	t.Run("By_State_On_Auction", func(t *testing.T) {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions?state=ON_AUCTION", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Len(t, data["auctions"].([]any), 2)
	})

	t.Run("By_State_Ended_Empty", func(t *testing.T) {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions?state=ENDED", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Len(t, data["auctions"].([]any), 0)
	})

	t.Run("Paging", func(t *testing.T) {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/auctions?page=1&page_size=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Equal(t, float64(2), data["total"])
		require.Len(t, data["auctions"].([]any), 1)
	})
}
