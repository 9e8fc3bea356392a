package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// debugServer serves read-only inspection endpoints for one Handle.
type debugServer struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// ViewModelReport is the body of /view-model.
type ViewModelReport struct {
	Handle string   `json:"handle"`
	Len    int      `json:"len"`
	Values []string `json:"values"`
}

// WorkerReport is one entry of /workers.
type WorkerReport struct {
	ID      int    `json:"id"`
	State   string `json:"state"`
	Applied uint64 `json:"applied"`
	Skipped uint64 `json:"skipped"`
}

// startDebugServer binds addr and starts serving h. The listener is bound
// before returning so a port conflict fails New.
func startDebugServer(h *Handle, addr string) (*debugServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debug server listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /view-model", h.handleViewModel)
	mux.HandleFunc("GET /workers", h.handleWorkers)
	mux.HandleFunc("GET /mutations", h.handleMutations)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s := &debugServer{server: srv, listener: listener}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Error("debug server error", slog.Any("error", err))
		}
	}()
	h.logger.Info("debug server listening", slog.String("addr", listener.Addr().String()))
	return s, nil
}

// addr returns the bound address, or "" once stopped.
func (s *debugServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// stop closes the listener and every open connection without waiting for
// in-flight requests. It is safe to call before Serve has started.
func (s *debugServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return
	}
	_ = server.Close()
	_ = listener.Close()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handle) handleViewModel(w http.ResponseWriter, r *http.Request) {
	vm := h.Snapshot()
	values := vm.Values()
	if values == nil {
		values = []string{}
	}
	writeJSON(w, ViewModelReport{Handle: h.id, Len: len(values), Values: values})
}

func (h *Handle) handleWorkers(w http.ResponseWriter, r *http.Request) {
	statuses := h.Workers()
	out := make([]WorkerReport, len(statuses))
	for i, st := range statuses {
		out[i] = WorkerReport{ID: st.ID, State: st.State.String(), Applied: st.Applied, Skipped: st.Skipped}
	}
	writeJSON(w, out)
}

func (h *Handle) handleMutations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Mutations())
}

// writeJSON encodes to a buffer first so encoding errors become a 500.
func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
