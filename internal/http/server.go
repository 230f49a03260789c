package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nrsnotify/internal/cache"
	"nrsnotify/internal/cookie"
	"nrsnotify/internal/i18n"
	"nrsnotify/internal/log"
	"nrsnotify/internal/middleware/ratelimit"
	"nrsnotify/internal/middleware/security"
	"nrsnotify/internal/middleware/trace"
	"nrsnotify/internal/ports"
	"nrsnotify/internal/services"
	"nrsnotify/internal/session"
	appweb "nrsnotify/web"
)

// StoreFunc picks the watermark store for one request.
type StoreFunc func(w http.ResponseWriter, r *http.Request) ports.WatermarkStore

// CookieStores persists watermarks in the browser cookie.
func CookieStores() StoreFunc {
	return func(w http.ResponseWriter, r *http.Request) ports.WatermarkStore {
		return cookie.NewStore(w, r)
	}
}

// SharedStore persists every request's watermarks in store.
func SharedStore(store ports.WatermarkStore) StoreFunc {
	return func(http.ResponseWriter, *http.Request) ports.WatermarkStore {
		return store
	}
}

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Options wires the server's dependencies.
type Options struct {
	Addr           string
	Sessions       *session.Manager
	Notifier       *services.NotificationService
	Stores         StoreFunc
	Bundle         *i18n.Bundle
	Language       string
	DefaultAccount string
	// Pages are the receiver pages accepted by the page router and mark-as-read.
	Pages       []string
	ReadyChecks map[string]ReadyCheck
	Logger      *log.Logger
	// RefreshAfter makes a view recount a session whose last refresh is at
	// least this old. Zero leaves recounting to the Refresh action.
	RefreshAfter time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	sessions       *session.Manager
	notifier       *services.NotificationService
	stores         StoreFunc
	bundle         *i18n.Bundle
	language       string
	defaultAccount string
	readyChecks    map[string]ReadyCheck
	validator      *FormValidator
	refreshAfter   time.Duration

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector
	cacheManager *cache.Manager
	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	if opts.Stores == nil {
		opts.Stores = CookieStores()
	}
	if opts.Bundle == nil {
		opts.Bundle = i18n.NewBundle()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	s := &Server{
		sessions:       opts.Sessions,
		notifier:       opts.Notifier,
		stores:         opts.Stores,
		bundle:         opts.Bundle,
		language:       opts.Language,
		defaultAccount: opts.DefaultAccount,
		readyChecks:    opts.ReadyChecks,
		refreshAfter:   opts.RefreshAfter,
		validator:      NewFormValidator(opts.Pages),
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		detector:       detector,
		cacheManager:   cache.NewManager(),
		startedAt:      time.Now(),
	}

	// Expired sessions are swept in the background.
	s.cacheManager.Register("sessions", s.sessions.Cache())
	s.cacheManager.StartCleanup(5 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/notifications", s.handleNotifications)
	mux.HandleFunc("POST /notifications/read", s.handleMarkRead)
	mux.HandleFunc("POST /notifications/refresh", s.handleRefresh)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("GET /page/{page}", s.handlePage)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, nil)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(opts.Logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
