// Package aggregator provides read-only market rollups over all products
// for overview dashboards. It never mutates pricing state.
package aggregator

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/surge/internal/domain"
	"github.com/vadiminshakov/surge/internal/history"
)

// ProductLister is the read capability the aggregator needs.
type ProductLister interface {
	List() []domain.Product
}

// Aggregator computes market-wide rollups.
type Aggregator struct {
	products ProductLister
	history  *history.Log
}

// New creates a market aggregator.
func New(products ProductLister, hist *history.Log) *Aggregator {
	return &Aggregator{products: products, history: hist}
}

// Stats is the market overview consumed by dashboards.
type Stats struct {
	TotalProducts    int             `json:"total_products"`
	CrashSalesActive int             `json:"crash_sales_active"`
	TotalVolume      int64           `json:"total_volume"`
	AvgCurrentPrice  decimal.Decimal `json:"avg_current_price"`
}

// Stats returns totals over all products: purchase volume, active crash
// sales and the mean current price.
func (a *Aggregator) Stats() Stats {
	products := a.products.List()

	stats := Stats{TotalProducts: len(products)}
	if len(products) == 0 {
		return stats
	}

	sum := decimal.Zero
	for _, p := range products {
		if p.CrashSaleActive {
			stats.CrashSalesActive++
		}
		stats.TotalVolume += p.PurchaseCount
		sum = sum.Add(p.CurrentPrice)
	}
	stats.AvgCurrentPrice = sum.Div(decimal.NewFromInt(int64(len(products))))

	return stats
}

// IndexSeries returns a market index of up to n steps: the mean price
// across all products at each step of their recent histories, oldest first.
// Products with shorter histories contribute their current price for the
// missing leading steps, so every step averages over all products.
func (a *Aggregator) IndexSeries(n int) []decimal.Decimal {
	products := a.products.List()
	if len(products) == 0 || n <= 0 {
		return nil
	}

	tails := make([][]domain.PricePoint, len(products))
	steps := 0
	for i, p := range products {
		tails[i] = a.history.Tail(p.ID, n)
		if len(tails[i]) > steps {
			steps = len(tails[i])
		}
	}
	if steps == 0 {
		return nil
	}

	count := decimal.NewFromInt(int64(len(products)))
	series := make([]decimal.Decimal, steps)
	for step := 0; step < steps; step++ {
		sum := decimal.Zero
		for i, p := range products {
			tail := tails[i]
			// align tails at the most recent point
			idx := len(tail) - steps + step
			switch {
			case idx >= 0:
				sum = sum.Add(tail[idx].Price)
			case len(tail) > 0:
				sum = sum.Add(tail[0].Price)
			default:
				sum = sum.Add(p.CurrentPrice)
			}
		}
		series[step] = sum.Div(count)
	}

	return series
}

// SmoothedIndex returns the index series smoothed with a simple moving
// average over the given period. The smoothed series is shorter than the
// raw one by period-1 steps.
func (a *Aggregator) SmoothedIndex(n, period int) []decimal.Decimal {
	series := a.IndexSeries(n)
	if period <= 1 || len(series) < period {
		return series
	}

	raw := make([]float64, len(series))
	for i, v := range series {
		raw[i], _ = v.Float64()
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(raw)))

	out := make([]decimal.Decimal, len(smoothed))
	for i, v := range smoothed {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
