// Package http provides the HTTP surface for ibridge: the WebSocket
// mount point, health and status endpoints, and a small REST API over
// the editor automation.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"ibridge/internal/domain/ports"
	"ibridge/internal/pairing"
	"ibridge/internal/services/inbox"
	"ibridge/internal/workspace"
)

// Server is the HTTP API server.
type Server struct {
	addr       string
	httpServer *http.Server

	automator ports.Automator
	monitor   *workspace.Monitor
	inbox     *inbox.Store
	qr        *pairing.QRGenerator
	quota     ports.QuotaProvider
	wsHandler http.Handler
}

// NewServer creates the HTTP server. Optional collaborators (inbox, qr,
// quota) may be nil; their endpoints then report unavailable.
func NewServer(
	host string,
	port int,
	automator ports.Automator,
	monitor *workspace.Monitor,
	store *inbox.Store,
	qr *pairing.QRGenerator,
	quota ports.QuotaProvider,
	wsHandler http.Handler,
) *Server {
	return &Server{
		addr:      fmt.Sprintf("%s:%d", host, port),
		automator: automator,
		monitor:   monitor,
		inbox:     store,
		qr:        qr,
		quota:     quota,
		wsHandler: wsHandler,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/model", s.handleSetModel).Methods("POST")
	api.HandleFunc("/mode", s.handleSetMode).Methods("POST")
	api.HandleFunc("/workspace", s.handleWorkspace).Methods("GET")
	api.HandleFunc("/approvals", s.handleApprovals).Methods("GET")
	api.HandleFunc("/approvals/respond", s.handleRespondApproval).Methods("POST")
	api.HandleFunc("/screenshot", s.handleScreenshot).Methods("GET")
	api.HandleFunc("/pairing", s.handlePairing).Methods("GET")
	api.HandleFunc("/pairing/qr", s.handlePairingQR).Methods("GET")
	api.HandleFunc("/messages", s.handleHistory).Methods("GET")
	api.HandleFunc("/messages", s.handleSendMessage).Methods("POST")
	api.HandleFunc("/messages", s.handleClearMessages).Methods("DELETE")

	// Live event stream for mobile clients.
	router.Handle("/ws", s.wsHandler)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: corsMiddleware(router),
		// No Read/WriteTimeout: /ws carries long-lived WebSocket
		// connections whose deadlines are managed per-frame by the pumps.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("HTTP server starting")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Info().Msg("HTTP server stopping")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// corsMiddleware allows cross-origin requests from mobile app webviews.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
