package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auctions "furniture-auction/internal/auctionService"
	bidding "furniture-auction/internal/biddingService"
	"furniture-auction/internal/marketplace"
	model "furniture-auction/internal/models"
	"furniture-auction/internal/repository"
	"furniture-auction/internal/server"
	"furniture-auction/internal/tick"
	"furniture-auction/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SetupTestRouter initializes the router with in-memory storage and
// marketplace collaborators seeded with the given products and customers.
func SetupTestRouter(products []model.Product, customers []model.Customer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()

	catalog := marketplace.NewMemoryCatalog()
	for _, p := range products {
		catalog.AddProduct(p)
	}

	directory := marketplace.NewMemoryDirectory()
	for _, c := range customers {
		directory.AddCustomer(c)
	}

	auctionSvc := auctions.NewAuctionService(repo, catalog)
	biddingSvc := bidding.NewBiddingService(repo, directory, marketplace.LogSink{}, tick.DefaultTable(), bidding.DefaultRetryPolicy())

	return server.SetupRouter(auctionSvc, biddingSvc)
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	case nil:
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// RegisterAuction registers an auction through the API and returns its ID.
func RegisterAuction(t *testing.T, router *gin.Engine, productID, startPrice string, endTime time.Time) string {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions", helpers.RegisterAuctionRequest{
		ProductID:  productID,
		StartPrice: dec(startPrice),
		EndTime:    endTime,
		AdminID:    "admin1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := resp["data"].(map[string]any)
	auctionID := data["auction_id"].(string)
	require.NotEmpty(t, auctionID)
	return auctionID
}

// defaultMarketplace returns the product and customer seed used by most tests.
func defaultMarketplace() ([]model.Product, []model.Customer) {
	products := []model.Product{
		{ProductID: "sofa1", Name: "Velvet Sofa", Category: "sofas", Price: dec("18000"), Active: true},
		{ProductID: "desk1", Name: "Oak Writing Desk", Category: "desks", Price: dec("7500"), Active: true},
		{ProductID: "chair1", Name: "Walnut Armchair", Category: "chairs", Price: dec("4200"), Active: false},
	}
	customers := []model.Customer{
		{CustomerID: "cust1", DisplayName: "Alice"},
		{CustomerID: "cust2", DisplayName: "Bob"},
	}
	return products, customers
}
