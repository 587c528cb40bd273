package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"expensebot/internal/log"
	"expensebot/internal/middleware/ratelimit"
	"expensebot/internal/middleware/security"
	"expensebot/internal/middleware/trace"
	"expensebot/internal/telemetry"
)

const (
	WebhookPath = "/telegram/webhook"

	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
)

// ReadyFunc reports whether the backing stores can serve requests.
type ReadyFunc func(ctx context.Context) error

type Options struct {
	Addr               string
	Webhook            *WebhookHandler
	Ready              ReadyFunc
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server serves health probes, Prometheus metrics and the Telegram webhook.
type Server struct {
	http.Server
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", readyHandler(opts.Ready))
	mux.Handle("GET /metrics", telemetry.Handler())
	if opts.Webhook != nil {
		mux.Handle("POST "+WebhookPath, limiter.Middleware(detector.ExtractClientIP, nil)(opts.Webhook))
	}

	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = tracer.Middleware(handler)
	handler = otelhttp.NewHandler(handler, "expensebot")

	return &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		limiter: limiter,
		tracer:  tracer,
	}
}

// ListenAndServe runs until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func readyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				log.FromContext(r.Context()).Warn("Readiness check failed", log.FieldError, err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		_, _ = w.Write([]byte("ready"))
	}
}
