// Package server provides the web front end: upload a workbook and a
// template, generate the documents and download them.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
	"github.com/benjaminschreck/go-finiquito/pkg/sheet"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Config holds HTTP server configuration
type Config struct {
	Addr         string
	UploadDir    string
	ProcessedDir string
	// MaxUploadBytes limits the in-memory part of multipart forms
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Sheet          sheet.Options
	Workers        int
	NameField      string
}

// ConfigFrom builds the server configuration from the application config.
func ConfigFrom(cfg *merge.Config) Config {
	return Config{
		Addr:           cfg.Server.Addr,
		UploadDir:      cfg.Server.UploadDir,
		ProcessedDir:   cfg.Server.ProcessedDir,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Minute,
		Sheet:          sheet.Options{Sheet: cfg.Sheet.Name, HeaderRow: cfg.Sheet.HeaderRow},
		Workers:        cfg.Workers,
		NameField:      cfg.Sheet.NameField,
	}
}

// Server is the HTTP server
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// Option customises a Server.
type Option func(*Handlers)

// WithHistory stores every processed batch.
func WithHistory(store *history.Store) Option {
	return func(h *Handlers) { h.history = store }
}

// WithEngine sets the substitution engine used for every batch.
func WithEngine(engine *merge.Engine) Option {
	return func(h *Handlers) { h.engine = engine }
}

// WithTemplateCache shares a template cache with the server.
func WithTemplateCache(cache *merge.TemplateCache) Option {
	return func(h *Handlers) { h.cache = cache }
}

// NewServer creates a new HTTP server
func NewServer(config Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.UploadDir == "" || config.ProcessedDir == "" {
		return nil, errors.New("upload and processed directories are required")
	}

	router := gin.New()
	if config.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = config.MaxUploadBytes
	}

	pages, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(pages)

	handlers := NewHandlers(config, logger)
	for _, opt := range opts {
		opt(handlers)
	}

	s := &Server{
		config: config,
		router: router,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes(handlers)
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes(h *Handlers) {
	s.router.GET("/", h.Index)
	s.router.POST("/", h.Process)
	s.router.GET("/descargas", h.Downloads)
	s.router.GET("/download/:filename", h.Download)
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/batches", h.ListBatches)
		api.GET("/batches/:id", h.GetBatch)
	}
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", s.config.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
