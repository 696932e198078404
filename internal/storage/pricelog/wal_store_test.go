package pricelog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/surge/internal/domain"
)

func TestAppendAndPointsAfter(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append("p1", domain.PricePoint{
		Timestamp: ts,
		Price:     decimal.NewFromInt(105),
		Event:     domain.EventPurchase,
	}))
	require.NoError(t, store.Append("p2", domain.PricePoint{
		Timestamp: ts.Add(time.Minute),
		Price:     decimal.NewFromInt(75),
		Event:     domain.EventCrashSale,
	}))

	records, err := store.PointsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "p1", records[0].ProductID)
	require.Equal(t, domain.EventPurchase, records[0].Point.Event)
	require.True(t, decimal.NewFromInt(105).Equal(records[0].Point.Price))

	require.Equal(t, "p2", records[1].ProductID)
	require.Equal(t, domain.EventCrashSale, records[1].Point.Event)

	// nothing after the latest index
	more, err := store.PointsAfter(records[1].Index)
	require.NoError(t, err)
	require.Empty(t, more)
}

func TestPointsAfterSkipsForeignEntries(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append("p1", domain.PricePoint{
		Timestamp: ts,
		Price:     decimal.NewFromInt(105),
		Event:     domain.EventPurchase,
	}))
	// an entry under another key shares the WAL but not the price stream
	require.NoError(t, store.wal.Write(store.wal.CurrentIndex()+1, "other_state", []byte("{}")))
	require.NoError(t, store.Append("p2", domain.PricePoint{
		Timestamp: ts.Add(time.Minute),
		Price:     decimal.NewFromInt(110),
		Event:     domain.EventPurchase,
	}))

	records, err := store.PointsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "p1", records[0].ProductID)
	require.Equal(t, "p2", records[1].ProductID)
}

func TestAppendRequiresProductID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Append("", domain.PricePoint{}))
}

func TestCurrentIndexAdvances(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	before := store.CurrentIndex()
	require.NoError(t, store.Append("p1", domain.PricePoint{
		Timestamp: time.Now().UTC(),
		Price:     decimal.NewFromInt(100),
		Event:     domain.EventDecay,
	}))
	require.Greater(t, store.CurrentIndex(), before)
}
