package rpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/modules/traceability"
	"go.uber.org/zap"
)

type Server struct {
	ledger  *traceability.Service
	methods map[string]RPCHandler
	log     *log.Logger

	httpServer *http.Server
}

func NewServer(ledger *traceability.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		ledger:  ledger,
		methods: NewHandlers(ledger),
		log:     logger.Named("rpc"),
	}
}

//
// ------------------------------------------------------------
// RPC SERVER STARTUP
// ------------------------------------------------------------
//

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// JSON-RPC
	mux.HandleFunc("/", s.HandleJSONRPC)

	// block and item subscriptions
	mux.HandleFunc("/ws", s.HandleWS)

	return mux
}

// Start serves JSON-RPC on addr in the background.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("rpc listening", zap.String("addr", addr), zap.Int("methods", len(s.methods)))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("rpc server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
