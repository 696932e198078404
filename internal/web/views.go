package web

import (
	"time"

	"github.com/vadiminshakov/surge/internal/domain"
)

// productView is the stable entity shape served to client collaborators.
// Prices are rendered with two decimal places at this boundary only.
type productView struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	Category              string      `json:"category"`
	ImageURL              string      `json:"image_url"`
	BasePrice             string      `json:"base_price"`
	MaxRetailPrice        string      `json:"max_retail_price"`
	PriceIncrementPercent string      `json:"price_increment_percent"`
	CurrentPrice          string      `json:"current_price"`
	PurchaseCount         int64       `json:"purchase_count"`
	CrashSaleActive       bool        `json:"crash_sale_active"`
	LastPurchaseAt        *time.Time  `json:"last_purchase_time,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	PriceHistory          []pointView `json:"price_history,omitempty"`
}

type pointView struct {
	Timestamp time.Time `json:"timestamp"`
	Price     string    `json:"price"`
	Event     string    `json:"event"`
}

func toProductView(p domain.Product, history []domain.PricePoint) productView {
	view := productView{
		ID:                    p.ID,
		Name:                  p.Name,
		Description:           p.Description,
		Category:              p.Category,
		ImageURL:              p.ImageURL,
		BasePrice:             p.BasePrice.StringFixed(2),
		MaxRetailPrice:        p.MaxRetailPrice.StringFixed(2),
		PriceIncrementPercent: p.PriceIncrementPercent.String(),
		CurrentPrice:          p.CurrentPrice.StringFixed(2),
		PurchaseCount:         p.PurchaseCount,
		CrashSaleActive:       p.CrashSaleActive,
		CreatedAt:             p.CreatedAt,
	}
	if !p.LastPurchaseAt.IsZero() {
		t := p.LastPurchaseAt
		view.LastPurchaseAt = &t
	}
	for _, pt := range history {
		view.PriceHistory = append(view.PriceHistory, toPointView(pt))
	}
	return view
}

func toPointView(pt domain.PricePoint) pointView {
	return pointView{
		Timestamp: pt.Timestamp,
		Price:     pt.Price.StringFixed(2),
		Event:     string(pt.Event),
	}
}
