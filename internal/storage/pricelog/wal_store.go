// Package pricelog persists price history points in a WAL so dashboards can
// stream them and restarts keep a durable audit trail.
package pricelog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/surge/internal/domain"
)

const (
	defaultJournalDir   = "./wal/prices"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	journalKeyPrefix    = "price_"
)

// Record bundles a price point with the WAL index it originated from.
type Record struct {
	Index     uint64
	ProductID string
	Point     domain.PricePoint
}

type journalEntry struct {
	ProductID string            `json:"product_id"`
	Point     domain.PricePoint `json:"point"`
}

// WALStore is a WAL-backed append-only journal of price points.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes the journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init price journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one price point to the journal. Implements history.Sink.
func (s *WALStore) Append(productID string, point domain.PricePoint) error {
	if s == nil || s.wal == nil {
		return errors.New("price journal is not initialized")
	}
	if productID == "" {
		return errors.New("product id is required")
	}

	payload, err := json.Marshal(journalEntry{ProductID: productID, Point: point})
	if err != nil {
		return errors.Wrap(err, "marshal price point")
	}

	key := fmt.Sprintf("%s%s", journalKeyPrefix, productID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// PointsAfter returns all price points written after the provided WAL index.
func (s *WALStore) PointsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("price journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			// compacted or missing entries leave gaps, the stream goes on
			continue
		}
		if !strings.HasPrefix(key, journalKeyPrefix) {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrap(err, "decode price point")
		}
		records = append(records, Record{
			Index:     idx,
			ProductID: entry.ProductID,
			Point:     entry.Point,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("price journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
