package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceEvent names the transition that produced a price point.
type PriceEvent string

const (
	// EventPurchase a regular purchase bump.
	EventPurchase PriceEvent = "purchase"
	// EventDecay an idle-time decay step.
	EventDecay PriceEvent = "decay"
	// EventCrashSale an automatically triggered crash-sale discount.
	EventCrashSale PriceEvent = "crash_sale"
	// EventManualCrashSale an administratively triggered crash-sale discount.
	EventManualCrashSale PriceEvent = "manual_crash_sale"
	// EventCrashSaleEnded an administrative crash-sale deactivation.
	EventCrashSaleEnded PriceEvent = "crash_sale_ended"
)

// PricePoint is one entry of a product's append-only price history.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Event     PriceEvent      `json:"event"`
}
