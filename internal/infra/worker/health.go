package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"newsrelay/internal/observability/metrics"
	"newsrelay/internal/observability/tracing"
)

// LivenessMessage is the body returned by GET /.
const LivenessMessage = "newsrelay worker active"

// HealthServer answers liveness probes. It shares no state with the poll
// loop and answers 200 regardless of pipeline health.
type HealthServer struct {
	addr   string
	logger *slog.Logger
	server *http.Server
}

func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{addr: addr, logger: logger}
}

// Handler returns the liveness handler. Only GET (and HEAD) on "/" is served.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleLiveness)
	return tracing.Middleware(mux)
}

// Start serves until ctx is cancelled, then shuts the server down.
// It returns http.ErrServerClosed after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:              h.addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	route := "/"
	if r.URL.Path != "/" {
		route = "other"
	}
	defer func() {
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	}()

	if r.URL.Path != "/" {
		status = http.StatusNotFound
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(LivenessMessage)); err != nil {
		h.logger.Error("failed to write liveness response", slog.Any("error", err))
	}
}
