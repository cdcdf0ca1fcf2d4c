package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	auctions "furniture-auction/internal/auctionService"
	bidding "furniture-auction/internal/biddingService"
	"furniture-auction/internal/marketplace"
	model "furniture-auction/internal/models"
	"furniture-auction/internal/repository"
	"furniture-auction/internal/server"
	"furniture-auction/internal/sweeper"
	"furniture-auction/internal/tick"
	"furniture-auction/utils"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := setupRepository()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up storage: %v\n", err)
		os.Exit(1)
	}

	ticks, err := setupTickTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid TICK_TABLE: %v\n", err)
		os.Exit(1)
	}

	catalog := marketplace.NewMemoryCatalog()
	customers := marketplace.NewMemoryDirectory()
	prepopulateMarketplace(catalog, customers)

	notifier := marketplace.LogSink{}

	auctionSvc := auctions.NewAuctionService(repo, catalog)
	biddingSvc := bidding.NewBiddingService(repo, customers, notifier, ticks, retryPolicyFromEnv())

	sweep := sweeper.New(repo, catalog, notifier, sweepIntervalFromEnv())
	go sweep.Start(ctx)

	router := server.SetupRouter(auctionSvc, biddingSvc)

	port := getPort()
	fmt.Printf("Starting auction server on %s...\n", port)
	if err := router.Run(port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// setupRepository connects to MySQL when MYSQL_DSN is set, otherwise falls
// back to the in-memory store.
func setupRepository() (repository.AuctionDB, error) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		utils.Info("MYSQL_DSN not set, using in-memory store", nil)
		return repository.NewMemoryRepo(), nil
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	utils.Info("connected to MySQL", nil)
	return repository.NewMySQLRepo(db), nil
}

// setupTickTable parses TICK_TABLE (a JSON tier array) or falls back to the
// default tiers.
func setupTickTable() (tick.Table, error) {
	raw := os.Getenv("TICK_TABLE")
	if raw == "" {
		return tick.DefaultTable(), nil
	}
	return tick.ParseTable([]byte(raw))
}

// retryPolicyFromEnv reads BID_RETRY_ATTEMPTS / BID_RETRY_BACKOFF, keeping
// the defaults for anything unset or unparsable.
func retryPolicyFromEnv() bidding.RetryPolicy {
	policy := bidding.DefaultRetryPolicy()
	if v := os.Getenv("BID_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			policy.MaxAttempts = n
		}
	}
	if v := os.Getenv("BID_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			policy.Backoff = d
		}
	}
	return policy
}

func sweepIntervalFromEnv() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return sweeper.DefaultInterval
}

// prepopulateMarketplace seeds sample products and customers so the server
// is usable out of the box with the in-memory collaborators.
func prepopulateMarketplace(catalog *marketplace.MemoryCatalog, customers *marketplace.MemoryDirectory) {
	products := []model.Product{
		{ProductID: "sofa1", Name: "Velvet Sofa", Category: "sofas", Price: decimal.NewFromInt(18_000), Active: true},
		{ProductID: "desk1", Name: "Oak Writing Desk", Category: "desks", Price: decimal.NewFromInt(7_500), Active: true},
		{ProductID: "chair1", Name: "Walnut Armchair", Category: "chairs", Price: decimal.NewFromInt(4_200), Active: true},
	}
	for _, p := range products {
		catalog.AddProduct(p)
	}

	seed := []model.Customer{
		{CustomerID: "cust1", DisplayName: "Alice"},
		{CustomerID: "cust2", DisplayName: "Bob"},
		{CustomerID: "cust3", DisplayName: "Carol"},
	}
	for _, c := range seed {
		customers.AddCustomer(c)
	}
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}
