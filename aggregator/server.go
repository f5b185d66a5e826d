package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/metrics"
)

// Protocol paths.
const (
	PathSubmit  = "/submit"
	PathStatus  = "/status"
	PathBatch   = "/batch"
	PathMetrics = "/metrics"
)

// SubmitResponse is the body of an accepted submission. Exactly one of
// Pending and BatchTriggered is set.
type SubmitResponse struct {
	Status         string  `json:"status"`
	RequestID      uint64  `json:"request_id"`
	Pending        *int    `json:"pending,omitempty"`
	BatchTriggered *uint64 `json:"batch_triggered,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status           string  `json:"status"`
	PendingRequests  int     `json:"pending_requests"`
	BatchSize        int     `json:"batch_size"`
	BatchesCompleted uint64  `json:"batches_completed"`
	QueuedBatches    int     `json:"queued_batches"`
	ProofsGenerated  uint64  `json:"proofs_generated"`
	ProofsFailed     uint64  `json:"proofs_failed"`
	SubmitRate       float64 `json:"submit_rate"`
}

// BatchResponse is the body of GET /batch.
type BatchResponse struct {
	PendingCount int      `json:"pending_count"`
	BatchSize    int      `json:"batch_size"`
	RequestIDs   []uint64 `json:"request_ids"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server exposes a Collector over HTTP.
type Server struct {
	collector *Collector
	cfg       Config
	log       *log.Logger
	handler   http.Handler

	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates the protocol server for c.
func NewServer(c *Collector, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		collector: c,
		cfg:       cfg,
		log:       logger.Module("server"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathSubmit, s.handleSubmit)
	mux.HandleFunc("GET "+PathStatus, s.handleStatus)
	mux.HandleFunc("GET "+PathBatch, s.handleBatch)
	mux.Handle("GET "+PathMetrics, metrics.Handler(metrics.DefaultRegistry))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	s.handler = recoverMiddleware(s.log, loggingMiddleware(s.log, mux))
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler for testing without starting a listener.
func (s *Server) Handler() http.Handler { return s.handler }

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return ln, nil
}

// Serve serves the protocol on ln until Shutdown. Serve after Shutdown
// returns immediately.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	srv := s.httpServer
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("collector listening", "addr", ln.Addr().String(), "batch_size", s.cfg.BatchSize)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listener address. Useful when started on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	var req types.SignatureRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.CollectorRefused.Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	res, err := s.collector.Submit(&req)
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid signature or public key size"})
		return
	case errors.Is(err, ErrCollectorFull), errors.Is(err, ErrCollectorStopped):
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := SubmitResponse{Status: "accepted", RequestID: res.RequestID}
	if res.BatchTriggered != 0 {
		resp.BatchTriggered = &res.BatchTriggered
	} else {
		resp.Pending = &res.Pending
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.collector.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:           "running",
		PendingRequests:  st.Pending,
		BatchSize:        st.BatchSize,
		BatchesCompleted: st.BatchesCompleted,
		QueuedBatches:    st.QueuedBatches,
		ProofsGenerated:  st.ProofsGenerated,
		ProofsFailed:     st.ProofsFailed,
		SubmitRate:       st.SubmitRate,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ids := s.collector.PendingIDs()
	writeJSON(w, http.StatusOK, BatchResponse{
		PendingCount: len(ids),
		BatchSize:    s.cfg.BatchSize,
		RequestIDs:   ids,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func recoverMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("handler panic", "path", r.URL.Path, "panic", v)
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
