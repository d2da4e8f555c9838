package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/price-relay/internal/api"
	"github.com/rickgao/price-relay/internal/holdings"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/portfolio"
	"github.com/rickgao/price-relay/internal/relay"
	"github.com/rickgao/price-relay/internal/session"
)

// StreamEngine is the relay surface used by the stream endpoint.
type StreamEngine interface {
	Enabled() bool
	RegisterClient(id string) (*session.Session, error)
	UnregisterClient(id string)
	Subscribe(id string, symbols []string)
	Unsubscribe(id string, symbols []string)
	Forward(ctx context.Context, id string, sink func(model.Event) error) error
	Stats() relay.Stats
}

// QuoteService serves quotes and symbol lookups.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SearchSymbol(ctx context.Context, query string) ([]api.SearchResult, error)
}

// AnalyticsService computes portfolio reports.
type AnalyticsService interface {
	Analytics(ctx context.Context, userID uuid.UUID) (portfolio.Report, error)
}

// Pinger checks a dependency's health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	AllowedOrigins  []string // "*" allows any origin
	ShutdownTimeout time.Duration
	WriteTimeout    time.Duration // Per-message stream write deadline
	PingInterval    time.Duration // Stream keepalive ping period
	ClientRateLimit float64       // Control messages per second per stream
	ClientRateBurst int
	MetricsPath     string
	Debug           bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		ShutdownTimeout: 10 * time.Second,
		WriteTimeout:    5 * time.Second,
		PingInterval:    30 * time.Second,
		ClientRateLimit: 10,
		ClientRateBurst: 20,
		MetricsPath:     "/metrics",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.ClientRateLimit <= 0 {
		c.ClientRateLimit = d.ClientRateLimit
	}
	if c.ClientRateBurst <= 0 {
		c.ClientRateBurst = d.ClientRateBurst
	}
	if c.MetricsPath == "" {
		c.MetricsPath = d.MetricsPath
	}
	return c
}

// Deps are the collaborators behind the routes. Nil optional deps make
// their routes answer 503.
type Deps struct {
	Engine    StreamEngine     // Required
	Holdings  holdings.Store   // Optional
	Quotes    QuoteService     // Optional
	Analytics AnalyticsService // Optional
	Database  Pinger           // Optional
	Metrics   http.Handler     // Optional; mounted at Config.MetricsPath
}

// Server is the HTTP front of the relay.
type Server struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a Server with all routes registered.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "http"),
		router: gin.New(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.router.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET(s.cfg.MetricsPath, gin.WrapH(s.deps.Metrics))
	}

	s.router.GET("/stream/prices", s.handleStream)

	quotes := s.router.Group("/quotes")
	quotes.GET("", s.handleGetQuote)
	quotes.GET("/search/:symbol", s.handleSearchSymbol)

	holdings := s.router.Group("/holdings")
	holdings.GET("", s.handleListHoldings)
	holdings.POST("", s.handleCreateHolding)
	holdings.GET("/:id", s.handleGetHolding)
	holdings.PUT("/:id", s.handleUpdateHolding)
	holdings.DELETE("/:id", s.handleDeleteHolding)

	s.router.GET("/portfolio/analytics", s.handleAnalytics)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// ShutdownTimeout. Open streams are hijacked connections and are not
// waited for; they end when the engine closes their sessions.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
}

// checkOrigin admits non-browser clients (no Origin header) and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		)
	}
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
