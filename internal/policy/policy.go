// Package policy implements the pure price transition arithmetic of the
// pricing engine. All functions are side-effect free and operate on
// decimals; callers round only when a price is surfaced externally.
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
)

// PurchaseBump returns the price after one purchase:
// current * (1 + incrementPercent/100).
func PurchaseBump(current, incrementPercent decimal.Decimal) decimal.Decimal {
	return current.Mul(one.Add(incrementPercent.Div(hundred)))
}

// Floor returns the lowest price a product may hold: half the base price.
func Floor(base decimal.Decimal) decimal.Decimal {
	return base.Mul(half)
}

// Clamp bounds price to [0.5*base, maxRetail].
func Clamp(price, base, maxRetail decimal.Decimal) decimal.Decimal {
	if floor := Floor(base); price.LessThan(floor) {
		return floor
	}
	if price.GreaterThan(maxRetail) {
		return maxRetail
	}
	return price
}

// Decay returns the price after elapsed idle time, decremented linearly by
// ratePerHour and never below the floor. Elapsed is the time since the last
// decay step (or since the post-purchase grace interval ran out), so
// consecutive scheduled ticks compound.
func Decay(current, base decimal.Decimal, elapsed time.Duration, ratePerHour decimal.Decimal) decimal.Decimal {
	if elapsed <= 0 {
		return current
	}

	hours := decimal.NewFromFloat(elapsed.Hours())
	next := current.Sub(ratePerHour.Mul(hours))

	if floor := Floor(base); next.LessThan(floor) {
		return floor
	}
	return next
}

// CrashDiscount returns the crash-sale price: half the retail ceiling.
// It is applied once at the moment the sale activates, not on reads.
func CrashDiscount(maxRetail decimal.Decimal) decimal.Decimal {
	return maxRetail.Mul(half)
}
