package marketplace

import (
	"context"
	"fmt"
	"sync"

	"furniture-auction/internal/auctionerrors"
	model "furniture-auction/internal/models"
	"furniture-auction/utils"

	"github.com/shopspring/decimal"
)

// MemoryCatalog is a concurrency-safe in-memory ProductCatalog, used for
// local runs and tests until the real catalog service is wired in.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]model.Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[string]model.Product)}
}

// AddProduct seeds a product snapshot.
func (c *MemoryCatalog) AddProduct(p model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ProductID] = p
}

func (c *MemoryCatalog) FindProduct(_ context.Context, productID string) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return model.Product{}, fmt.Errorf("find product %s: %w", productID, auctionerrors.ErrProductNotFound)
	}
	return p, nil
}

func (c *MemoryCatalog) SetUnderAuction(_ context.Context, productID string, underAuction bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		return fmt.Errorf("set under-auction for product %s: %w", productID, auctionerrors.ErrProductNotFound)
	}
	p.UnderAuction = underAuction
	c.products[productID] = p
	return nil
}

// MemoryDirectory is an in-memory CustomerDirectory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	customers map[string]model.Customer
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{customers: make(map[string]model.Customer)}
}

// AddCustomer seeds a customer record.
func (d *MemoryDirectory) AddCustomer(c model.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.CustomerID] = c
}

func (d *MemoryDirectory) FindCustomer(_ context.Context, customerID string) (model.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.customers[customerID]
	if !ok {
		return model.Customer{}, fmt.Errorf("find customer %s: %w", customerID, auctionerrors.ErrCustomerNotFound)
	}
	return c, nil
}

// LogSink is a NotificationSink that only logs. It stands in for the real
// notification service in local runs.
type LogSink struct{}

func (LogSink) NotifyAuctionWon(_ context.Context, customerID, auctionID string, winningPrice decimal.Decimal) error {
	utils.Info("auction won notification", map[string]any{
		"customer_id":   customerID,
		"auction_id":    auctionID,
		"winning_price": winningPrice.String(),
	})
	return nil
}

func (LogSink) NotifyOutbid(_ context.Context, customerID, auctionID string, newPrice decimal.Decimal) error {
	utils.Info("outbid notification", map[string]any{
		"customer_id": customerID,
		"auction_id":  auctionID,
		"new_price":   newPrice.String(),
	})
	return nil
}
