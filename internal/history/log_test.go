package history

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/surge/internal/domain"
)

func point(price int64, offset time.Duration) domain.PricePoint {
	return domain.PricePoint{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset),
		Price:     decimal.NewFromInt(price),
		Event:     domain.EventPurchase,
	}
}

func TestAppendAndTail(t *testing.T) {
	l := New(nil)

	require.NoError(t, l.Append("p1", point(100, 0)))
	require.NoError(t, l.Append("p1", point(105, time.Minute)))
	require.NoError(t, l.Append("p1", point(110, 2*time.Minute)))

	tail := l.Tail("p1", 2)
	require.Len(t, tail, 2)
	require.True(t, decimal.NewFromInt(105).Equal(tail[0].Price))
	require.True(t, decimal.NewFromInt(110).Equal(tail[1].Price))
}

func TestTailFewerThanRequested(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Append("p1", point(100, 0)))

	tail := l.Tail("p1", 10)
	require.Len(t, tail, 1)
	require.True(t, decimal.NewFromInt(100).Equal(tail[0].Price))
}

func TestTailUnknownProduct(t *testing.T) {
	l := New(nil)
	require.Empty(t, l.Tail("nope", 5))
}

func TestTailChronologicalOrder(t *testing.T) {
	l := New(nil)
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Append("p1", point(int64(100+i), time.Duration(i)*time.Minute)))
	}

	tail := l.Tail("p1", 20)
	for i := 1; i < len(tail); i++ {
		require.True(t, tail[i].Timestamp.After(tail[i-1].Timestamp))
	}
}

func TestLen(t *testing.T) {
	l := New(nil)
	require.Zero(t, l.Len("p1"))
	require.NoError(t, l.Append("p1", point(100, 0)))
	require.Equal(t, 1, l.Len("p1"))
}

func TestDrop(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Append("p1", point(100, 0)))
	l.Drop("p1")
	require.Zero(t, l.Len("p1"))
}

type recordingSink struct {
	ids []string
	err error
}

func (s *recordingSink) Append(productID string, _ domain.PricePoint) error {
	s.ids = append(s.ids, productID)
	return s.err
}

func TestSinkReceivesEveryPoint(t *testing.T) {
	sink := &recordingSink{}
	l := New(sink)

	require.NoError(t, l.Append("p1", point(100, 0)))
	require.NoError(t, l.Append("p2", point(200, 0)))

	require.Equal(t, []string{"p1", "p2"}, sink.ids)
}

func TestSinkErrorDoesNotLoseInMemoryPoint(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	l := New(sink)

	err := l.Append("p1", point(100, 0))
	require.Error(t, err)
	require.Equal(t, 1, l.Len("p1"))
}
