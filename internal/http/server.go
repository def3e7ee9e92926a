package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"finml/internal/anomaly"
	"finml/internal/forecast"
	applog "finml/internal/log"
	"finml/internal/middleware/ratelimit"
	"finml/internal/middleware/security"
	"finml/internal/middleware/trace"
)

// Insights runs the forecast and anomaly pipelines.
type Insights interface {
	ForecastExpenses(ctx context.Context, userID, token string) (forecast.Result, error)
	DetectAnomalies(ctx context.Context, userID, token string) (anomaly.Result, error)
}

// Advisor answers chat messages.
type Advisor interface {
	Reply(ctx context.Context, userID, token, message string) (string, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Options configures the server.
type Options struct {
	Logger             *applog.Logger
	Insights           Insights
	Advisor            Advisor
	Ready              ReadinessCheck
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	insights Insights
	advisor  Advisor
	ready    ReadinessCheck

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// The chat path waits on the language model
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		insights: opts.Insights,
		advisor:  opts.Advisor,
		ready:    opts.Ready,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict-expense", s.handlePredictExpense)
	mux.HandleFunc("/detect-anomalies", s.handleDetectAnomalies)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", handleNotFound)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         600,
	})

	rateLimited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	// CORS sits outside the limiter so 429 responses carry Access-Control headers.
	var handler http.Handler = mux
	handler = rateLimited(handler)
	handler = detector.Middleware(handler)
	handler = c.Handler(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
