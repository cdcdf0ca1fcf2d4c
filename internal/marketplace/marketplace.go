// Package marketplace defines the narrow interfaces through which the
// auction core talks to the rest of the furniture marketplace. Account
// management, catalog CRUD and notification delivery live behind these
// boundaries and are not part of this service.
package marketplace

import (
	"context"

	model "furniture-auction/internal/models"

	"github.com/shopspring/decimal"
)

// ProductCatalog exposes the catalog operations the auction core needs.
// The under-auction flag is owned by the catalog; the core must flip it in
// the same unit of work that creates or cancels an auction.
type ProductCatalog interface {
	FindProduct(ctx context.Context, productID string) (model.Product, error)
	SetUnderAuction(ctx context.Context, productID string, underAuction bool) error
}

// CustomerDirectory resolves bidder identities to display data.
type CustomerDirectory interface {
	FindCustomer(ctx context.Context, customerID string) (model.Customer, error)
}

// NotificationSink receives auction outcome notifications. Implementations
// must be safe for concurrent use; delivery is best-effort from the core's
// point of view.
type NotificationSink interface {
	NotifyAuctionWon(ctx context.Context, customerID, auctionID string, winningPrice decimal.Decimal) error
	NotifyOutbid(ctx context.Context, customerID, auctionID string, newPrice decimal.Decimal) error
}
