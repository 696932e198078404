package crashsale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/surge/internal/domain"
)

func newProduct() *domain.Product {
	return &domain.Product{
		ID:             "p1",
		BasePrice:      decimal.NewFromInt(100),
		MaxRetailPrice: decimal.NewFromInt(150),
		CurrentPrice:   decimal.NewFromInt(100),
	}
}

func TestShouldTrigger(t *testing.T) {
	c := NewController()
	maxRetail := decimal.NewFromInt(150)

	require.False(t, c.ShouldTrigger(decimal.NewFromInt(149), maxRetail))
	require.True(t, c.ShouldTrigger(decimal.NewFromInt(150), maxRetail))
	require.True(t, c.ShouldTrigger(decimal.NewFromInt(151), maxRetail))
}

func TestActivateAutomatic(t *testing.T) {
	c := NewController()
	p := newProduct()

	tr := c.Activate(p, domain.TriggerAutomatic)

	require.True(t, tr.Changed)
	require.Equal(t, domain.EventCrashSale, tr.Event)
	require.True(t, decimal.NewFromInt(75).Equal(tr.Price))
	require.True(t, p.CrashSaleActive)
	require.True(t, decimal.NewFromInt(75).Equal(p.CurrentPrice))
}

func TestActivateAdministrative(t *testing.T) {
	c := NewController()
	p := newProduct()

	tr := c.Activate(p, domain.TriggerAdministrative)

	require.True(t, tr.Changed)
	require.Equal(t, domain.EventManualCrashSale, tr.Event)
	require.True(t, decimal.NewFromInt(75).Equal(p.CurrentPrice))
}

func TestActivateIsIdempotent(t *testing.T) {
	c := NewController()
	p := newProduct()

	first := c.Activate(p, domain.TriggerAdministrative)
	require.True(t, first.Changed)

	second := c.Activate(p, domain.TriggerAdministrative)
	require.False(t, second.Changed)
	require.True(t, p.CrashSaleActive)
	// the discount must not be applied a second time
	require.True(t, decimal.NewFromInt(75).Equal(p.CurrentPrice))
}

func TestDeactivateLeavesPrice(t *testing.T) {
	c := NewController()
	p := newProduct()
	c.Activate(p, domain.TriggerAdministrative)

	tr := c.Deactivate(p)

	require.True(t, tr.Changed)
	require.Equal(t, domain.EventCrashSaleEnded, tr.Event)
	require.False(t, p.CrashSaleActive)
	// no price reset on deactivation
	require.True(t, decimal.NewFromInt(75).Equal(p.CurrentPrice))
}

func TestDeactivateIsIdempotent(t *testing.T) {
	c := NewController()
	p := newProduct()

	tr := c.Deactivate(p)
	require.False(t, tr.Changed)
	require.False(t, p.CrashSaleActive)
}
