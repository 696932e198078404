package engine

import (
	"sort"
	"sync"

	"github.com/vadiminshakov/surge/internal/domain"
)

// Repository is the product storage capability injected into the engine.
// Implementations must return copies so callers never observe torn state.
type Repository interface {
	Get(id string) (domain.Product, error)
	List() []domain.Product
	Create(p domain.Product) error
	// Update replaces the stored product if the version matches the stored
	// one, bumping it by one. A mismatch returns InvalidStateError.
	Update(p domain.Product) error
	Delete(id string) error
}

// InMemoryRepository keeps products in a map guarded by a RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewInMemoryRepository creates an empty in-memory product repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{products: make(map[string]domain.Product)}
}

// Get returns a copy of the product.
func (r *InMemoryRepository) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	return p, nil
}

// List returns copies of all products ordered by creation time.
func (r *InMemoryRepository) List() []domain.Product {
	r.mu.RLock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Create stores a new product.
func (r *InMemoryRepository) Create(p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return domain.ValidationError{Field: "id", Reason: "already exists"}
	}
	r.products[p.ID] = p
	return nil
}

// Update replaces the stored product after a version check.
func (r *InMemoryRepository) Update(p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[p.ID]
	if !ok {
		return domain.NotFoundError{ID: p.ID}
	}
	if stored.Version != p.Version {
		return domain.InvalidStateError{ID: p.ID, Reason: "concurrent modification detected"}
	}

	p.Version++
	r.products[p.ID] = p
	return nil
}

// Delete removes the product. Deletion is an external administrative
// action; the engine itself never destroys products.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.NotFoundError{ID: id}
	}
	delete(r.products, id)
	return nil
}
