// Package app wires the pricing engine, the decay scheduler and the web
// server into one runnable marketplace instance.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/surge/config"
	"github.com/vadiminshakov/surge/internal/aggregator"
	"github.com/vadiminshakov/surge/internal/domain"
	"github.com/vadiminshakov/surge/internal/engine"
	"github.com/vadiminshakov/surge/internal/history"
	"github.com/vadiminshakov/surge/internal/storage/pricelog"
	"github.com/vadiminshakov/surge/internal/web"
	"github.com/vadiminshakov/surge/pkg/retrier"
)

const journalQueueSize = 256

// pricePointAppender is the durable side of the journal sink.
type pricePointAppender interface {
	Append(productID string, point domain.PricePoint) error
}

type journalEntry struct {
	productID string
	point     domain.PricePoint
}

// journalSink forwards history points to the WAL journal from a background
// worker, retrying transient failures. Appends are enqueued without
// blocking, so a slow or failing journal never stalls the purchase path.
type journalSink struct {
	store   pricePointAppender
	retrier *retrier.Retrier
	logger  *zap.Logger
	queue   chan journalEntry
	done    chan struct{}
}

func newJournalSink(store pricePointAppender, r *retrier.Retrier, logger *zap.Logger) *journalSink {
	s := &journalSink{
		store:   store,
		retrier: r,
		logger:  logger,
		queue:   make(chan journalEntry, journalQueueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *journalSink) Append(productID string, point domain.PricePoint) error {
	select {
	case s.queue <- journalEntry{productID: productID, point: point}:
		return nil
	default:
		return errors.New("price journal queue is full")
	}
}

func (s *journalSink) run() {
	defer close(s.done)

	for e := range s.queue {
		err := s.retrier.Do(context.Background(), func(context.Context) error {
			return s.store.Append(e.productID, e.point)
		})
		if err != nil {
			s.logger.Warn("price journal append failed",
				zap.String("product_id", e.productID), zap.Error(err))
		}
	}
}

// Close drains the queue and stops the worker.
func (s *journalSink) Close() {
	close(s.queue)
	<-s.done
}

// Marketplace is a running pricing engine instance.
type Marketplace struct {
	Engine  *engine.Engine
	Market  *aggregator.Aggregator
	Journal *pricelog.WALStore
	Server  *web.Server
	Config  config.Config
	sink    *journalSink
	logger  *zap.Logger
}

// NewMarketplace builds the full instance from configuration.
func NewMarketplace(cfg config.Config, logger *zap.Logger) (*Marketplace, error) {
	journal, err := pricelog.NewWALStore(cfg.WalDir)
	if err != nil {
		return nil, errors.Wrap(err, "open price journal")
	}

	sink := newJournalSink(journal, retrier.New(), logger)
	hist := history.New(sink)
	repo := engine.NewInMemoryRepository()

	eng := engine.New(repo, hist, engine.Config{
		DecayRatePerHour: cfg.DecayRatePerHour,
		DecayInterval:    cfg.DecayInterval,
	}, logger)

	market := aggregator.New(repo, hist)
	server := web.NewServer(cfg.ListenAddr, eng, market, journal, logger)

	m := &Marketplace{
		Engine:  eng,
		Market:  market,
		Journal: journal,
		Server:  server,
		Config:  cfg,
		sink:    sink,
		logger:  logger,
	}

	if err := m.seed(); err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

// Close drains pending journal appends and closes the WAL.
func (m *Marketplace) Close() {
	m.sink.Close()
	if err := m.Journal.Close(); err != nil {
		m.logger.Warn("price journal close failed", zap.Error(err))
	}
}

func (m *Marketplace) seed() error {
	if len(m.Config.Seed) == 0 || len(m.Engine.ListProducts()) > 0 {
		return nil
	}

	for _, s := range m.Config.Seed {
		_, err := m.Engine.CreateProduct(engine.CreateParams{
			Name:                  s.Name,
			Description:           s.Description,
			Category:              s.Category,
			ImageURL:              s.ImageURL,
			BasePrice:             s.BasePrice,
			MaxRetailPrice:        s.MaxRetailPrice,
			PriceIncrementPercent: s.IncrementPercent,
		})
		if err != nil {
			return errors.Wrapf(err, "seed product %q", s.Name)
		}
	}

	m.logger.Info("catalog seeded", zap.Int("products", len(m.Config.Seed)))
	return nil
}

// Run starts the decay scheduler and the web server and blocks until the
// context is cancelled.
func (m *Marketplace) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		if m.Config.TLSDomain != "" {
			serverErr <- m.Server.StartWithAutoTLS(ctx, m.Config.TLSDomain, "")
			return
		}
		serverErr <- m.Server.Start(ctx)
	}()

	m.logger.Info("marketplace started",
		zap.String("addr", m.Config.ListenAddr),
		zap.Duration("tick_interval", m.Config.TickInterval))

	ticker := time.NewTicker(m.Config.TickInterval)
	defer ticker.Stop()
	defer m.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-serverErr:
			if err != nil {
				return errors.Wrap(err, "web server")
			}
			return nil
		case now := <-ticker.C:
			affected := m.Engine.Tick(now)
			if len(affected) > 0 {
				m.logger.Debug("decay tick", zap.Strings("affected", affected))
			}
		}
	}
}
