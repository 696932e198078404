// Package engine implements the dynamic pricing engine: every purchase
// pushes a product's price up, idle time lets it decay back toward the base
// price, and reaching the retail ceiling triggers a crash sale that halves
// the price. All mutations of a product are serialized by a per-product
// lock and recorded in the append-only price history.
package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/surge/internal/crashsale"
	"github.com/vadiminshakov/surge/internal/domain"
	"github.com/vadiminshakov/surge/internal/history"
	"github.com/vadiminshakov/surge/internal/policy"
)

const (
	defaultDecayInterval = time.Hour
)

// Clock returns the current time; injectable for deterministic tests.
type Clock func() time.Time

// Config holds the engine-level pricing constants shared by all products.
type Config struct {
	// DecayRatePerHour absolute price decrement applied per idle hour.
	DecayRatePerHour decimal.Decimal
	// DecayInterval minimum idle time before decay starts; also the
	// post-purchase grace period.
	DecayInterval time.Duration
}

// DefaultConfig returns the documented default pricing constants.
func DefaultConfig() Config {
	return Config{
		DecayRatePerHour: decimal.NewFromFloat(0.5),
		DecayInterval:    defaultDecayInterval,
	}
}

// Engine orchestrates the pricing policy, the crash-sale controller and the
// price history log over a product repository.
type Engine struct {
	repo    Repository
	history *history.Log
	crash   crashsale.Controller
	cfg     Config
	clock   Clock
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates a pricing engine.
func New(repo Repository, hist *history.Log, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if cfg.DecayInterval <= 0 {
		cfg.DecayInterval = defaultDecayInterval
	}
	if cfg.DecayRatePerHour.IsZero() {
		cfg.DecayRatePerHour = DefaultConfig().DecayRatePerHour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		repo:    repo,
		history: hist,
		crash:   crashsale.NewController(),
		cfg:     cfg,
		clock:   time.Now,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lk, ok := e.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		e.locks[id] = lk
	}
	return lk
}

// CreateParams are the administrative "add product" parameters.
type CreateParams struct {
	Name                  string
	Description           string
	Category              string
	ImageURL              string
	BasePrice             decimal.Decimal
	MaxRetailPrice        decimal.Decimal
	PriceIncrementPercent decimal.Decimal
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !p.BasePrice.IsPositive() {
		return domain.ValidationError{Field: "base_price", Reason: "must be positive"}
	}
	if p.MaxRetailPrice.LessThanOrEqual(p.BasePrice) {
		return domain.ValidationError{Field: "max_retail_price", Reason: "must be greater than base_price"}
	}
	if p.PriceIncrementPercent.IsNegative() {
		return domain.ValidationError{Field: "price_increment_percent", Reason: "must not be negative"}
	}
	return nil
}

// CreateProduct validates the parameters and stores a new product with the
// current price initialized to the base price.
func (e *Engine) CreateProduct(params CreateParams) (domain.Product, error) {
	if err := params.validate(); err != nil {
		return domain.Product{}, err
	}

	p := domain.Product{
		ID:                    uuid.NewString(),
		Name:                  params.Name,
		Description:           params.Description,
		Category:              params.Category,
		ImageURL:              params.ImageURL,
		BasePrice:             params.BasePrice,
		MaxRetailPrice:        params.MaxRetailPrice,
		PriceIncrementPercent: params.PriceIncrementPercent,
		CurrentPrice:          params.BasePrice,
		CreatedAt:             e.clock(),
	}

	if err := e.repo.Create(p); err != nil {
		return domain.Product{}, err
	}

	e.logger.Info("product created",
		zap.String("product", p.ID),
		zap.String("name", p.Name),
		zap.String("base_price", p.BasePrice.String()))

	return p, nil
}

// UpdateParams are the administrative product update parameters.
// Nil fields are left unchanged.
type UpdateParams struct {
	Name                  *string
	Description           *string
	Category              *string
	ImageURL              *string
	BasePrice             *decimal.Decimal
	MaxRetailPrice        *decimal.Decimal
	PriceIncrementPercent *decimal.Decimal
}

// UpdateProduct applies an administrative update. Changing the base price
// resets the pricing state: current price back to base, purchase count to
// zero, crash sale off and the in-memory history cleared.
func (e *Engine) UpdateProduct(id string, params UpdateParams) (domain.Product, error) {
	lk := e.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	p, err := e.repo.Get(id)
	if err != nil {
		return domain.Product{}, err
	}

	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Category != nil {
		p.Category = *params.Category
	}
	if params.ImageURL != nil {
		p.ImageURL = *params.ImageURL
	}
	if params.MaxRetailPrice != nil {
		p.MaxRetailPrice = *params.MaxRetailPrice
	}
	if params.PriceIncrementPercent != nil {
		p.PriceIncrementPercent = *params.PriceIncrementPercent
	}

	baseChanged := params.BasePrice != nil && !params.BasePrice.Equal(p.BasePrice)
	if params.BasePrice != nil {
		p.BasePrice = *params.BasePrice
	}

	if !p.BasePrice.IsPositive() {
		return domain.Product{}, domain.ValidationError{Field: "base_price", Reason: "must be positive"}
	}
	if p.MaxRetailPrice.LessThanOrEqual(p.BasePrice) {
		return domain.Product{}, domain.ValidationError{Field: "max_retail_price", Reason: "must be greater than base_price"}
	}
	if p.PriceIncrementPercent.IsNegative() {
		return domain.Product{}, domain.ValidationError{Field: "price_increment_percent", Reason: "must not be negative"}
	}

	if baseChanged {
		p.CurrentPrice = p.BasePrice
		p.PurchaseCount = 0
		p.CrashSaleActive = false
		p.LastPurchaseAt = time.Time{}
		p.LastDecayAt = time.Time{}
		e.history.Drop(id)
	}

	if err := e.repo.Update(p); err != nil {
		return domain.Product{}, err
	}
	p.Version++

	return p, nil
}

// PurchaseResult is the outcome of one recorded purchase.
type PurchaseResult struct {
	NewPrice           decimal.Decimal
	CrashSaleTriggered bool
}

// RecordPurchase applies one purchase bump to the product. If the bump
// crosses the retail ceiling while the product is in the Normal state, the
// crash sale activates and the price is halved instead of clamped.
// Exactly one history point is appended.
func (e *Engine) RecordPurchase(id string) (PurchaseResult, error) {
	lk := e.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	p, err := e.repo.Get(id)
	if err != nil {
		return PurchaseResult{}, err
	}

	now := e.clock()
	bumped := policy.PurchaseBump(p.CurrentPrice, p.PriceIncrementPercent)

	var event domain.PriceEvent
	triggered := false
	if !p.CrashSaleActive && e.crash.ShouldTrigger(bumped, p.MaxRetailPrice) {
		tr := e.crash.Activate(&p, domain.TriggerAutomatic)
		event = tr.Event
		triggered = true
	} else {
		p.CurrentPrice = policy.Clamp(bumped, p.BasePrice, p.MaxRetailPrice)
		event = domain.EventPurchase
	}

	if p.CurrentPrice.LessThan(policy.Floor(p.BasePrice)) || p.CurrentPrice.GreaterThan(p.MaxRetailPrice) {
		return PurchaseResult{}, domain.InvalidStateError{ID: id, Reason: "price out of bounds after purchase"}
	}

	p.PurchaseCount++
	p.LastPurchaseAt = now

	if err := e.repo.Update(p); err != nil {
		return PurchaseResult{}, err
	}

	e.appendHistory(id, domain.PricePoint{Timestamp: now, Price: p.CurrentPrice, Event: event})

	if triggered {
		e.logger.Info("crash sale triggered",
			zap.String("product", id),
			zap.String("price", p.CurrentPrice.String()))
	}

	return PurchaseResult{NewPrice: p.CurrentPrice, CrashSaleTriggered: triggered}, nil
}

// Tick runs one decay step over every product whose idle time exceeds the
// decay interval and returns the ids whose price changed. Calling it again
// with the same now is a no-op.
func (e *Engine) Tick(now time.Time) []string {
	var affected []string

	for _, snapshot := range e.repo.List() {
		id := snapshot.ID

		lk := e.lockFor(id)
		lk.Lock()

		p, err := e.repo.Get(id)
		if err != nil {
			// deleted while iterating
			lk.Unlock()
			continue
		}

		ref := p.LastPurchaseAt
		if ref.IsZero() {
			ref = p.CreatedAt
		}
		grace := true
		if p.LastDecayAt.After(ref) {
			ref = p.LastDecayAt
			grace = false
		}

		elapsed := now.Sub(ref)
		if elapsed <= e.cfg.DecayInterval {
			lk.Unlock()
			continue
		}
		if grace {
			elapsed -= e.cfg.DecayInterval
		}

		next := policy.Decay(p.CurrentPrice, p.BasePrice, elapsed, e.cfg.DecayRatePerHour)
		if next.Equal(p.CurrentPrice) {
			// already at the floor
			lk.Unlock()
			continue
		}

		p.CurrentPrice = next
		p.LastDecayAt = now

		if err := e.repo.Update(p); err != nil {
			e.logger.Warn("decay update failed", zap.String("product", id), zap.Error(err))
			lk.Unlock()
			continue
		}

		e.appendHistory(id, domain.PricePoint{Timestamp: now, Price: next, Event: domain.EventDecay})
		affected = append(affected, id)

		lk.Unlock()
	}

	if len(affected) > 0 {
		e.logger.Info("decay applied", zap.Int("products", len(affected)))
	}

	return affected
}

// CrashSaleResult is the per-product outcome of a bulk crash-sale toggle.
type CrashSaleResult struct {
	ProductID string
	Active    bool
	Err       error
}

// SetCrashSale toggles the crash-sale state for each product. Unknown ids
// are reported individually; one failure never aborts the rest of the
// batch. Repeating the call is a safe no-op.
func (e *Engine) SetCrashSale(ids []string, activate bool) []CrashSaleResult {
	results := make([]CrashSaleResult, 0, len(ids))

	for _, id := range ids {
		results = append(results, e.toggleCrashSale(id, activate))
	}

	return results
}

func (e *Engine) toggleCrashSale(id string, activate bool) CrashSaleResult {
	lk := e.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	p, err := e.repo.Get(id)
	if err != nil {
		return CrashSaleResult{ProductID: id, Err: err}
	}

	var tr crashsale.Transition
	if activate {
		tr = e.crash.Activate(&p, domain.TriggerAdministrative)
	} else {
		tr = e.crash.Deactivate(&p)
	}

	if !tr.Changed {
		return CrashSaleResult{ProductID: id, Active: p.CrashSaleActive}
	}

	if err := e.repo.Update(p); err != nil {
		return CrashSaleResult{ProductID: id, Err: err}
	}

	now := e.clock()
	e.appendHistory(id, domain.PricePoint{Timestamp: now, Price: tr.Price, Event: tr.Event})

	e.logger.Info("crash sale toggled",
		zap.String("product", id),
		zap.Bool("active", p.CrashSaleActive))

	return CrashSaleResult{ProductID: id, Active: p.CrashSaleActive}
}

// Snapshot returns a consistent copy of the product. Pure read.
func (e *Engine) Snapshot(id string) (domain.Product, error) {
	return e.repo.Get(id)
}

// ListProducts returns consistent copies of all products.
func (e *Engine) ListProducts() []domain.Product {
	return e.repo.List()
}

// Tail returns the most recent n history points of the product in
// chronological order.
func (e *Engine) Tail(id string, n int) ([]domain.PricePoint, error) {
	if _, err := e.repo.Get(id); err != nil {
		return nil, err
	}
	return e.history.Tail(id, n), nil
}

// SnapshotWithHistory returns the product together with its recent history
// under the product lock, so the last history entry matches the current
// price.
func (e *Engine) SnapshotWithHistory(id string, n int) (domain.Product, []domain.PricePoint, error) {
	lk := e.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	p, err := e.repo.Get(id)
	if err != nil {
		return domain.Product{}, nil, err
	}
	return p, e.history.Tail(id, n), nil
}

func (e *Engine) appendHistory(id string, point domain.PricePoint) {
	if err := e.history.Append(id, point); err != nil {
		e.logger.Warn("price journal append failed", zap.String("product", id), zap.Error(err))
	}
}
