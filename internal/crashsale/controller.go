// Package crashsale owns the crash-sale state machine of a product.
// A product is either in the Normal state or the CrashSale state; the
// controller performs the transitions and reports what changed so the
// engine can record a matching history point.
package crashsale

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/surge/internal/domain"
	"github.com/vadiminshakov/surge/internal/policy"
)

// Transition describes the outcome of a state change request.
type Transition struct {
	// Changed is false when the request was an idempotent no-op.
	Changed bool
	// Price the product price after the transition.
	Price decimal.Decimal
	// Event the history event kind to record when Changed is true.
	Event domain.PriceEvent
}

// Controller performs crash-sale state transitions on products.
type Controller struct{}

// NewController creates a crash-sale controller.
func NewController() Controller {
	return Controller{}
}

// ShouldTrigger reports whether a bumped price crosses the retail ceiling
// and must flip the product into the CrashSale state.
func (Controller) ShouldTrigger(bumped, maxRetail decimal.Decimal) bool {
	return bumped.GreaterThanOrEqual(maxRetail)
}

// Activate moves the product into the CrashSale state and applies the
// discount once: the price that would have been clamped to the retail
// ceiling is halved instead. Activating an already active sale is a no-op,
// so bulk administrative operations are safe to retry.
func (Controller) Activate(p *domain.Product, reason domain.TriggerReason) Transition {
	if p.CrashSaleActive {
		return Transition{Changed: false, Price: p.CurrentPrice}
	}

	p.CrashSaleActive = true
	p.CurrentPrice = policy.CrashDiscount(p.MaxRetailPrice)

	event := domain.EventCrashSale
	if reason == domain.TriggerAdministrative {
		event = domain.EventManualCrashSale
	}

	return Transition{Changed: true, Price: p.CurrentPrice, Event: event}
}

// Deactivate moves the product back to the Normal state. The price is left
// at its current value; there is no automatic reset. Deactivating an
// inactive sale is a no-op.
func (Controller) Deactivate(p *domain.Product) Transition {
	if !p.CrashSaleActive {
		return Transition{Changed: false, Price: p.CurrentPrice}
	}

	p.CrashSaleActive = false

	return Transition{Changed: true, Price: p.CurrentPrice, Event: domain.EventCrashSaleEnded}
}
