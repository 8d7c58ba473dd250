package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/ui"
	appweb "budget/web"
)

// Server serves the budget pages and talks to the budget service through
// a ui.Client per request.
type Server struct {
	http.Server
	templates *template.Template
	api       ui.API
	events    ui.EventPublisher
	validate  *validator.Validate
	logger    *log.Logger

	registry         *prometheus.Registry
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	rateLimit      int
	trustedProxies []string
	now            func() time.Time
	started   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithEvents publishes transaction mutations through p.
func WithEvents(p ui.EventPublisher) Option {
	return func(s *Server) { s.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentHTTP)
		}
	}
}

// WithRegistry registers the server metrics on reg and exposes it on
// /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithRateLimit sets the allowed mutating requests per minute and client.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

// WithTrustedProxies adds proxy networks (CIDR) whose X-Forwarded-For and
// X-Real-IP headers identify the client.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) { s.trustedProxies = append(s.trustedProxies, cidrs...) }
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, api ui.API, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		api:       api,
		validate:  newValidator(),
		logger:    log.Default(log.ComponentHTTP),
		registry:  prometheus.NewRegistry(),
		rateLimit: ratelimit.DefaultConfig().RequestsPerMinute,
		now:       time.Now,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.securityDetector = security.NewDetector(s.logger, s.registry)
	for _, cidr := range s.trustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, s.logger, s.registry)
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: s.rateLimit,
		Registerer:        s.registry,
	})

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.Handler = s.middleware(mux)
	return s
}

// middleware wraps next with tracing, request-scoped logging, security
// headers, suspicious request detection and rate limiting, outermost first.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(next)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(s.logger)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
	NotificationErrorResponse(http.StatusTooManyRequests, "Zu viele Anfragen. Bitte später erneut versuchen.").
		Header("Retry-After", "60").
		Write(w)
}

// client builds the controller for one request.
func (s *Server) client(r *http.Request, p *page, d *htmxDialog) *ui.Client {
	opts := []ui.Option{
		ui.WithLogger(log.FromContext(r.Context())),
		ui.WithClock(s.now),
	}
	if s.events != nil {
		opts = append(opts, ui.WithEvents(s.events))
	}
	return ui.New(s.api, p.bindings(), d, opts...)
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
