// Package gateway is the UI-facing boundary of the station: a JSON API
// for connection lifecycle and vehicle commands, plus a websocket stream
// pushing every accepted packet and vehicle event.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groundlink-io/groundlink/internal/gcs/link"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/pkg/log"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP gateway in front of one link manager.
type Server struct {
	manager *link.Manager
	hub     *Hub
	srv     *http.Server
	log     log.Logger
}

// New builds the gateway in front of manager. Feed it packets and events
// through BroadcastPacket and BroadcastEvent.
func New(addr string, manager *link.Manager) *Server {
	s := &Server{
		manager: manager,
		hub:     NewHub(),
		log:     log.WithName("gateway"),
	}

	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

// BroadcastPacket pushes one accepted inbound packet to every stream
// subscriber.
func (s *Server) BroadcastPacket(p *mav.Packet) {
	s.hub.Broadcast(newStreamFrame(p))
}

// BroadcastEvent pushes one vehicle notification to every stream
// subscriber.
func (s *Server) BroadcastEvent(evt vehicle.Event) {
	s.hub.Broadcast(newEventFrame(evt))
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/connection", s.handleConnect).Methods(http.MethodPost)
	api.HandleFunc("/connection", s.handleDisconnect).Methods(http.MethodDelete)
	api.HandleFunc("/connection", s.handleConnectionStatus).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", s.handleVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{vehicle}", s.handleVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{vehicle}/commands/{command}", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)

	r.Handle("/stream", s.hub)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "ok"})
	})
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "ready"})
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("Gateway listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutCtx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
