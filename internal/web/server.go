// Package web exposes the pricing engine to client collaborators over a
// JSON HTTP API plus an SSE price stream. It renders no UI and performs no
// authentication; it only translates engine results and errors.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/surge/internal/aggregator"
	"github.com/vadiminshakov/surge/internal/domain"
	"github.com/vadiminshakov/surge/internal/engine"
	"github.com/vadiminshakov/surge/internal/storage/pricelog"
)

const (
	journalPollInterval = 2 * time.Second
	defaultTailLimit    = 100
)

// Server exposes HTTP endpoints serving product snapshots, market rollups
// and an SSE stream of price points.
type Server struct {
	Addr    string
	Engine  *engine.Engine
	Market  *aggregator.Aggregator
	Journal *pricelog.WALStore
	Logger  *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, eng *engine.Engine, market *aggregator.Aggregator, journal *pricelog.WALStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Engine: eng, Market: market, Journal: journal, Logger: logger}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("GET /products/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /products/{id}/purchase", s.handlePurchase)
	mux.HandleFunc("GET /market/stats", s.handleMarketStats)
	mux.HandleFunc("GET /market/index", s.handleMarketIndex)
	mux.HandleFunc("GET /prices/stream", s.handlePriceStream)
	mux.HandleFunc("POST /admin/products", s.handleCreateProduct)
	mux.HandleFunc("PUT /admin/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("POST /admin/crash-sale", s.handleCrashSale)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via
// ACME, plus an HTTP server on port 80 for HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domainName, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if domainName == "" {
		return fmt.Errorf("no domain provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domainName),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		_ = httpsSrv.Shutdown(shutdownCtx)
	}()

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	products := s.Engine.ListProducts()

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p, nil))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, history, err := s.Engine.SnapshotWithHistory(id, defaultTailLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductView(p, history))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := defaultTailLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, domain.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	points, err := s.Engine.Tail(id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]pointView, 0, len(points))
	for _, pt := range points {
		views = append(views, toPointView(pt))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res, err := s.Engine.RecordPurchase(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product_id":           id,
		"new_price":            res.NewPrice.StringFixed(2),
		"crash_sale_triggered": res.CrashSaleTriggered,
	})
}

func (s *Server) handleMarketStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.Market.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_products":     stats.TotalProducts,
		"crash_sales_active": stats.CrashSalesActive,
		"total_volume":       stats.TotalVolume,
		"avg_current_price":  stats.AvgCurrentPrice.StringFixed(2),
	})
}

func (s *Server) handleMarketIndex(w http.ResponseWriter, r *http.Request) {
	n := defaultTailLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, domain.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		n = parsed
	}

	series := s.Market.IndexSeries(n)
	out := make([]string, 0, len(series))
	for _, v := range series {
		out = append(out, v.StringFixed(2))
	}

	writeJSON(w, http.StatusOK, map[string]any{"index": out})
}

func (s *Server) handlePriceStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "price journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(journalPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendPoints := func() error {
		records, err := s.Journal.PointsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(map[string]any{
				"product_id": record.ProductID,
				"timestamp":  record.Point.Timestamp,
				"price":      record.Point.Price.StringFixed(2),
				"event":      string(record.Point.Event),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: price\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendPoints(); err != nil {
		http.Error(w, "failed to load price points", http.StatusInternalServerError)
		s.Logger.Error("price stream initial load failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendPoints(); err != nil {
				s.Logger.Error("price stream poll failed", zap.Error(err))
			}
		}
	}
}

type createProductRequest struct {
	Name                  string `json:"name"`
	Description           string `json:"description"`
	Category              string `json:"category"`
	ImageURL              string `json:"image_url"`
	BasePrice             string `json:"base_price"`
	MaxRetailPrice        string `json:"max_retail_price"`
	PriceIncrementPercent string `json:"price_increment_percent"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	base, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		s.writeError(w, domain.ValidationError{Field: "base_price", Reason: "must be a decimal"})
		return
	}
	maxRetail, err := decimal.NewFromString(req.MaxRetailPrice)
	if err != nil {
		s.writeError(w, domain.ValidationError{Field: "max_retail_price", Reason: "must be a decimal"})
		return
	}
	increment := decimal.NewFromInt(5)
	if req.PriceIncrementPercent != "" {
		increment, err = decimal.NewFromString(req.PriceIncrementPercent)
		if err != nil {
			s.writeError(w, domain.ValidationError{Field: "price_increment_percent", Reason: "must be a decimal"})
			return
		}
	}

	p, err := s.Engine.CreateProduct(engine.CreateParams{
		Name:                  req.Name,
		Description:           req.Description,
		Category:              req.Category,
		ImageURL:              req.ImageURL,
		BasePrice:             base,
		MaxRetailPrice:        maxRetail,
		PriceIncrementPercent: increment,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductView(p, nil))
}

type updateProductRequest struct {
	Name                  *string `json:"name"`
	Description           *string `json:"description"`
	Category              *string `json:"category"`
	ImageURL              *string `json:"image_url"`
	BasePrice             *string `json:"base_price"`
	MaxRetailPrice        *string `json:"max_retail_price"`
	PriceIncrementPercent *string `json:"price_increment_percent"`
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	params := engine.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}

	var err error
	if params.BasePrice, err = parseOptionalDecimal(req.BasePrice, "base_price"); err != nil {
		s.writeError(w, err)
		return
	}
	if params.MaxRetailPrice, err = parseOptionalDecimal(req.MaxRetailPrice, "max_retail_price"); err != nil {
		s.writeError(w, err)
		return
	}
	if params.PriceIncrementPercent, err = parseOptionalDecimal(req.PriceIncrementPercent, "price_increment_percent"); err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.Engine.UpdateProduct(id, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductView(p, nil))
}

type crashSaleRequest struct {
	ProductIDs []string `json:"product_ids"`
	Activate   bool     `json:"activate"`
}

type crashSaleResultView struct {
	ProductID string `json:"product_id"`
	Active    bool   `json:"active"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleCrashSale(w http.ResponseWriter, r *http.Request) {
	var req crashSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}
	if len(req.ProductIDs) == 0 {
		s.writeError(w, domain.ValidationError{Field: "product_ids", Reason: "must not be empty"})
		return
	}

	results := s.Engine.SetCrashSale(req.ProductIDs, req.Activate)

	views := make([]crashSaleResultView, 0, len(results))
	for _, res := range results {
		view := crashSaleResultView{ProductID: res.ProductID, Active: res.Active}
		if res.Err != nil {
			view.Error = res.Err.Error()
		}
		views = append(views, view)
	}

	// partial failures are per item, the batch itself always succeeds
	writeJSON(w, http.StatusOK, map[string]any{"results": views})
}

func parseOptionalDecimal(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, domain.ValidationError{Field: field, Reason: "must be a decimal"}
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsInvalidState(err):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
