// Package domain defines core data structures used throughout the pricing engine.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a marketplace item whose price moves with demand.
// It is mutated only through engine operations.
type Product struct {
	// ID opaque unique identifier, immutable.
	ID string
	// Name display name of the product.
	Name string
	// Description short product description.
	Description string
	// Category product category used by listing collaborators.
	Category string
	// ImageURL location of the product image.
	ImageURL string
	// BasePrice price floor reference, immutable after creation.
	BasePrice decimal.Decimal
	// MaxRetailPrice crash-sale trigger ceiling, strictly greater than BasePrice.
	MaxRetailPrice decimal.Decimal
	// PriceIncrementPercent fractional bump applied per purchase.
	PriceIncrementPercent decimal.Decimal
	// CurrentPrice the live price, bounded by [0.5*BasePrice, MaxRetailPrice].
	CurrentPrice decimal.Decimal
	// PurchaseCount total completed purchases, never decreases.
	PurchaseCount int64
	// CrashSaleActive true while the product is in the CrashSale state.
	CrashSaleActive bool
	// LastPurchaseAt time of the last completed purchase, zero if never purchased.
	LastPurchaseAt time.Time
	// LastDecayAt time the last decay step was applied, zero if never decayed.
	LastDecayAt time.Time
	// CreatedAt creation time.
	CreatedAt time.Time
	// Version optimistic concurrency token maintained by the repository.
	Version uint64
}
