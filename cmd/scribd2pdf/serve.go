package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
)

// ErrListen is returned when the service cannot bind its address.
var ErrListen = errors.New("cannot listen")

// Server timeouts. Conversions run for tens of seconds, so only the header
// read is bounded; the write deadline is left to the render timeout.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// requestIDHeader carries the id assigned to each conversion request.
const requestIDHeader = "X-Request-ID"

// Conversion outcomes used as the metrics label.
const (
	outcomeSuccess           = "success"
	outcomeInvalidInput      = "invalid_input"
	outcomeDriverUnavailable = "driver_unavailable"
	outcomeNavigationTimeout = "navigation_timeout"
	outcomeRenderFailure     = "render_failure"
	outcomeCanceled          = "canceled"
	outcomeError             = "error"
)

// serviceMetrics holds the Prometheus collectors exposed on /metrics.
// A dedicated registry keeps Go runtime defaults out of the output.
type serviceMetrics struct {
	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	duration    prometheus.Histogram
	inFlight    prometheus.Gauge
}

func newServiceMetrics() *serviceMetrics {
	m := &serviceMetrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scribd2pdf",
				Name:      "conversions_total",
				Help:      "Conversions handled by the service, by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "scribd2pdf",
				Name:      "conversion_duration_seconds",
				Help:      "Duration of successful conversions in seconds.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "scribd2pdf",
				Name:      "conversions_in_flight",
				Help:      "Conversions currently holding a browser session.",
			},
		),
	}
	m.registry.MustRegister(m.conversions, m.duration, m.inFlight)
	return m
}

// server is the HTTP front end of the converter.
type server struct {
	conv    CLIConverter
	log     *zap.Logger
	sem     chan struct{}
	metrics *serviceMetrics
}

func newServer(conv CLIConverter, log *zap.Logger, maxConcurrent int) *server {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &server{
		conv:    conv,
		log:     log,
		sem:     make(chan struct{}, maxConcurrent),
		metrics: newServiceMetrics(),
	}
}

// routes builds the router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/convert", s.handleConvert)
	r.Post("/convert", s.handleConvert)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleConvert renders the document named by the url parameter (query
// string or form body) and streams the PDF back as an attachment.
func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(requestIDHeader, requestID)
	log := s.log.With(zap.String("request_id", requestID))

	raw := r.FormValue("url")
	if raw == "" {
		s.metrics.conversions.WithLabelValues(outcomeInvalidInput).Inc()
		writeJSONError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	// Malformed URLs never queue behind running conversions.
	if _, err := scribd2pdf.ParseReference(raw); err != nil {
		s.metrics.conversions.WithLabelValues(outcomeInvalidInput).Inc()
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-r.Context().Done():
		s.metrics.conversions.WithLabelValues(outcomeCanceled).Inc()
		log.Info("client left while queued", zap.String("url", raw))
		return
	}

	s.metrics.inFlight.Inc()
	res, err := s.conv.Convert(r.Context(), scribd2pdf.Input{
		URL:      raw,
		Reporter: scribd2pdf.NewLogReporter(log),
	})
	s.metrics.inFlight.Dec()

	if err != nil {
		status, outcome := classifyError(err)
		s.metrics.conversions.WithLabelValues(outcome).Inc()
		log.Warn("conversion failed", zap.String("url", raw), zap.String("outcome", outcome), zap.Error(err))
		writeJSONError(w, status, err.Error())
		return
	}

	s.metrics.conversions.WithLabelValues(outcomeSuccess).Inc()
	s.metrics.duration.Observe(res.Duration.Seconds())
	log.Info("served",
		zap.Uint64("doc_id", res.Reference.ID()),
		zap.Int("pages", res.Pages),
		zap.Duration("duration", res.Duration))

	w.Header().Set("Content-Type", scribd2pdf.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.PDF)
}

// classifyError maps a conversion error to an HTTP status and metrics label.
func classifyError(err error) (int, string) {
	switch {
	case scribd2pdf.IsInputError(err):
		return http.StatusBadRequest, outcomeInvalidInput
	case errors.Is(err, scribd2pdf.ErrDriverUnavailable):
		return http.StatusServiceUnavailable, outcomeDriverUnavailable
	case errors.Is(err, scribd2pdf.ErrNavigationTimeout):
		return http.StatusGatewayTimeout, outcomeNavigationTimeout
	case errors.Is(err, scribd2pdf.ErrRenderFailure):
		return http.StatusBadGateway, outcomeRenderFailure
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, outcomeCanceled
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

// writeJSONError writes {"error": msg} with the given status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// runServe starts the HTTP service and blocks until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(flags.common, flags.browser, flags.timing, env)
	if err != nil {
		return err
	}
	mergeServeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newServiceLogger(env.Stderr, flags.common.verbose)
	defer func() { _ = log.Sync() }()

	conv, err := newConverter(cfg, env, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %v", ErrListen, cfg.Server.Addr, err)
	}

	srv := newServer(conv, log, cfg.Server.MaxConcurrent)
	return serveUntilDone(ctx, ln, srv.routes(), log, cfg.Server.MaxConcurrent)
}

// mergeServeFlags merges service flags into config.
func mergeServeFlags(f *serveFlags, cfg *config.Config) {
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.maxConcurrent != 0 {
		cfg.Server.MaxConcurrent = f.maxConcurrent
	}
}

// serveUntilDone serves on ln until ctx is canceled, then drains in-flight
// requests for up to shutdownTimeout.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, log *zap.Logger, maxConcurrent int) error {
	httpSrv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.Serve(ln)
	}()
	log.Info("listening", zap.String("addr", ln.Addr().String()), zap.Int("max_concurrent", maxConcurrent))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
