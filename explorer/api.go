package explorer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/metrics"
	"github.com/Siasom1/herbchain/modules/traceability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type ExplorerAPI struct {
	Ledger  *traceability.Service
	Metrics *metrics.Metrics

	log    *log.Logger
	server *http.Server
}

func NewExplorerAPI(ledger *traceability.Service, m *metrics.Metrics, logger *log.Logger) *ExplorerAPI {
	if logger == nil {
		logger = log.Nop()
	}
	return &ExplorerAPI{
		Ledger:  ledger,
		Metrics: m,
		log:     logger.Named("explorer"),
	}
}

// Handler returns the explorer's routes. /metrics is mounted only when the
// API has a metrics registry.
func (api *ExplorerAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /explorer/latest-blocks", api.handleLatestBlocks)
	mux.HandleFunc("GET /explorer/block/{id}", api.handleBlock)
	mux.HandleFunc("GET /explorer/batches", api.handleBatches)
	mux.HandleFunc("GET /explorer/products", api.handleProducts)
	mux.HandleFunc("GET /explorer/item/{id}", api.handleItem)
	mux.HandleFunc("GET /explorer/trace/{id}", api.handleTrace)
	mux.HandleFunc("GET /explorer/label/{id}", api.handleLabel)
	mux.HandleFunc("POST /explorer/scan", api.handleScan)
	mux.HandleFunc("GET /explorer/verify", api.handleVerify)

	// Live streams (SSE)
	mux.HandleFunc("GET /explorer/stream/blocks", api.handleStreamBlocks)
	mux.HandleFunc("GET /explorer/stream/items", api.handleStreamItems)

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	return api.withRequestID(mux)
}

func (api *ExplorerAPI) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		api.log.Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// Start serves the explorer on addr in the background.
func (api *ExplorerAPI) Start(addr string) {
	api.server = &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	api.log.Info("explorer listening", zap.String("addr", addr))
	go func() {
		if err := api.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			api.log.Error("explorer stopped", zap.Error(err))
		}
	}()
}

func (api *ExplorerAPI) Stop(ctx context.Context) error {
	if api.server == nil {
		return nil
	}
	return api.server.Shutdown(ctx)
}
