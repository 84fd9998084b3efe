package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/envoverlay/internal/api"
	"github.com/eugenenazirov/envoverlay/internal/config"
	"github.com/eugenenazirov/envoverlay/internal/document"
	"github.com/eugenenazirov/envoverlay/internal/overlay"
	"github.com/eugenenazirov/envoverlay/internal/storage"
)

// Renderer loads the configured sources and overlays the environment onto
// them. Each call re-reads both the files and the environment.
type Renderer struct {
	sources []string
	rules   []overlay.Rule
	overlay overlay.Overlayer
}

// NewRenderer builds a Renderer from cfg. lookup supplies environment values;
// nil reads the process environment.
func NewRenderer(cfg config.Config, lookup overlay.Lookup, logger *zap.Logger) *Renderer {
	return &Renderer{
		sources: append([]string(nil), cfg.Sources...),
		rules:   append([]overlay.Rule(nil), cfg.Rules...),
		overlay: overlay.New(lookup,
			overlay.WithNullForUnset(cfg.NullForUnset),
			overlay.WithRequireExisting(cfg.RequireExisting),
			overlay.WithLogger(logger),
		),
	}
}

// Render returns the merged sources with the rules applied.
func (r *Renderer) Render() (overlay.Document, error) {
	doc, err := document.LoadAll(r.sources...)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	doc, err = r.overlay.Apply(doc, r.rules)
	if err != nil {
		return nil, fmt.Errorf("apply overlay: %w", err)
	}
	return doc, nil
}

// RunApply renders once and writes the result to cfg.Output, or to stdout
// when no output path is configured.
func RunApply(cfg config.Config, lookup overlay.Lookup, logger *zap.Logger, stdout io.Writer) error {
	doc, err := NewRenderer(cfg, lookup, logger).Render()
	if err != nil {
		return err
	}

	format, err := outputFormat(cfg)
	if err != nil {
		return err
	}

	if cfg.Output == "" {
		if err := document.Encode(stdout, doc, format); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		return nil
	}

	if err := document.Save(cfg.Output, doc, format); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	logger.Info("document written",
		zap.String("output", cfg.Output),
		zap.String("format", string(format)),
		zap.Int("rules", len(cfg.Rules)),
	)
	return nil
}

// outputFormat picks the explicit format, then the output extension, then the
// first source's extension.
func outputFormat(cfg config.Config) (document.Format, error) {
	if cfg.Format != "" {
		return document.ParseFormat(cfg.Format)
	}
	if cfg.Output != "" {
		if f, err := document.DetectFormat(cfg.Output); err == nil {
			return f, nil
		}
	}
	if len(cfg.Sources) > 0 {
		return document.DetectFormat(cfg.Sources[0])
	}
	return "", errors.New("unable to determine output format")
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	renderer *Renderer
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The document is rendered once up front so that a broken
// source or conflicting rule fails startup.
func New(cfg config.Config, lookup overlay.Lookup, logger *zap.Logger) (*App, error) {
	renderer := NewRenderer(cfg, lookup, logger)
	doc, err := renderer.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render initial document: %w", err)
	}

	store := storage.NewMemoryStorage()
	if err := store.SetDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to store initial document: %w", err)
	}

	handler := api.NewHandler(renderer, store)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:  store,
		renderer: renderer,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
