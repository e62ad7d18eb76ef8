package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	srvMu sync.Mutex
	srv   *http.Server

	lastMu  sync.Mutex
	lastRun health
)

// Init creates and registers the collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		initRunMetrics()
		registerRunMetrics()

		// so the series exist before the first run finishes
		LastRunTimestamp.Set(0)
	})
}

type health struct {
	Healthy        bool  `json:"healthy"`
	LastRun        int64 `json:"last_run"`
	LastRunSuccess bool  `json:"last_run_success"`
}

// Handler serves /metrics and a /health document describing the last run.
// A watch loop whose last cycle failed is still healthy; the failure shows
// in last_run_success.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		lastMu.Lock()
		h := lastRun
		lastMu.Unlock()
		h.Healthy = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h)
	})
	return mux
}

// StartServer serves Handler on addr in the background. A second call while
// a server is running is a no-op.
func StartServer(addr string, logger *log.Logger) {
	srvMu.Lock()
	defer srvMu.Unlock()

	if srv != nil {
		logger.Printf("metrics server already running on %s", srv.Addr)
		return
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv = s

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server error: %v", err)
		}
	}()
}

// Shutdown stops the server started by StartServer, if any.
func Shutdown(ctx context.Context, logger *log.Logger) {
	srvMu.Lock()
	defer srvMu.Unlock()

	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
	}
	srv = nil
}

// WriteTextfile writes every registered metric to path in the text format
// read by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
