// Package history implements the append-only price history log.
// Every price a product ever held is recorded here in chronological order;
// entries are never mutated, reordered or pruned.
package history

import (
	"sync"

	"github.com/vadiminshakov/surge/internal/domain"
)

// Sink receives every appended point, e.g. for durable journaling.
type Sink interface {
	Append(productID string, point domain.PricePoint) error
}

// Log keeps per-product price histories in memory.
type Log struct {
	mu     sync.RWMutex
	points map[string][]domain.PricePoint
	sink   Sink
}

// New creates a history log. Sink may be nil.
func New(sink Sink) *Log {
	return &Log{
		points: make(map[string][]domain.PricePoint),
		sink:   sink,
	}
}

// Append adds one point to the product's history. The returned error comes
// from the sink only; the in-memory append always succeeds.
func (l *Log) Append(productID string, point domain.PricePoint) error {
	l.mu.Lock()
	l.points[productID] = append(l.points[productID], point)
	l.mu.Unlock()

	if l.sink == nil {
		return nil
	}
	return l.sink.Append(productID, point)
}

// Tail returns the most recent n points in chronological order, oldest
// first. If fewer than n points exist, all of them are returned.
func (l *Log) Tail(productID string, n int) []domain.PricePoint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pts := l.points[productID]
	if n <= 0 || n > len(pts) {
		n = len(pts)
	}

	out := make([]domain.PricePoint, n)
	copy(out, pts[len(pts)-n:])
	return out
}

// Len returns the number of points recorded for the product.
func (l *Log) Len(productID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.points[productID])
}

// Drop removes the product's history. Used when an administrative update
// resets the pricing state; the durable journal keeps its records.
func (l *Log) Drop(productID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.points, productID)
}
