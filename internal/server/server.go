package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/orderly/internal/cliconfig"
	"github.com/bft-labs/orderly/internal/domain"
	"github.com/bft-labs/orderly/internal/httpapi"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/internal/query"
	"github.com/bft-labs/orderly/internal/reorder"
	"github.com/bft-labs/orderly/internal/selection"
	"github.com/bft-labs/orderly/pkg/lifecycle"
	"github.com/bft-labs/orderly/pkg/log"
)

const readHeaderTimeout = 10 * time.Second

// Server owns the collection and serves it over HTTP.
type Server struct {
	mu sync.Mutex

	cfg        cliconfig.Config
	logger     log.Logger
	listener   net.Listener
	configPath string
	setLevel   func(string)
	emitter    lifecycle.EventEmitter

	store     *orderstore.Store
	engine    *query.Engine
	selection *selection.Store
	reorder   *reorder.Protocol
	handler   http.Handler

	lifecycle *lifecycle.DefaultManager
	http      *http.Server
	watcher   *cliconfig.Watcher
	cancel    context.CancelFunc
	errc      chan error
}

// New validates cfg and builds every component. The collection is seeded
// with cfg.Size records.
func New(cfg cliconfig.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		logger: log.NewNoopLogger(),
		errc:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lifecycle = lifecycle.NewManager(s.logger, s.emitter)

	start := time.Now()
	store, err := orderstore.New(cfg.Size,
		orderstore.WithKeySpacing(cfg.KeySpacing),
		orderstore.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.store = store

	s.engine, err = query.New(store, query.Config{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		CacheSize:    cfg.ViewCacheSize,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	s.selection = selection.New(selection.Config{
		MaxClients: cfg.MaxClients,
		TTL:        cfg.SelectionTTL,
	}, s.logger)
	s.reorder = reorder.New(store, s.logger)

	s.handler = httpapi.NewHandler(s.engine, s.selection, s.reorder,
		httpapi.WithLogger(s.logger),
		httpapi.WithDefaultLimit(cfg.DefaultLimit),
		httpapi.WithAllowedOrigins(cfg.Origins()),
		httpapi.WithStateFunc(func() string { return s.lifecycle.State().String() }),
	)

	s.logger.Info("collection seeded",
		log.Int("records", store.Len()),
		log.Duration("took", time.Since(start)),
	)
	return s, nil
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the order store.
func (s *Server) Store() *orderstore.Store {
	return s.store
}

// State returns the current lifecycle state.
func (s *Server) State() lifecycle.State {
	return s.lifecycle.State()
}

// Addr returns the address being served, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start begins serving. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	if s.listener == nil {
		l, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "listen failed")
			return err
		}
		s.listener = l
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}

	if s.configPath != "" {
		s.watcher = cliconfig.NewWatcher(s.configPath, cliconfig.DefaultDebounceDelay, s.applyFileConfig, s.logger)
		if err := s.watcher.Start(runCtx); err != nil {
			s.logger.Warn("config watcher disabled",
				log.String("path", s.configPath),
				log.Err(err),
			)
			s.watcher = nil
		}
	}

	srv, l := s.http, s.listener
	s.lifecycle.Go(func() {
		err := srv.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", log.Err(err))
			s.errc <- err
			cancel()
		}
	})

	if err := s.lifecycle.TransitionTo(lifecycle.StateRunning, "listening"); err != nil {
		cancel()
		return err
	}
	s.logger.Info("serving", log.String("addr", l.Addr().String()))
	return nil
}

// Stop shuts the HTTP server down, waiting up to ShutdownTimeout for
// in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	srv, watcher, cancel := s.http, s.watcher, s.cancel
	s.http, s.watcher, s.cancel, s.listener = nil, nil, nil, nil
	s.mu.Unlock()

	timeout := s.cfg.ShutdownTimeout
	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()

	err := srv.Shutdown(ctx)
	if watcher != nil {
		watcher.Stop()
	}
	cancel()

	if werr := s.lifecycle.WaitWithTimeout(timeout); err == nil {
		err = werr
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
		return err
	}
	return s.lifecycle.TransitionTo(lifecycle.StateStopped, "shutdown complete")
}

// Run starts the server and blocks until ctx is done or serving fails,
// then stops it.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-s.errc:
	}

	if err := s.Stop(); err != nil && serveErr == nil {
		return err
	}
	return serveErr
}

// applyFileConfig applies the settings that can change while serving.
func (s *Server) applyFileConfig(fc cliconfig.FileConfig) {
	if fc.LogLevel == "" || s.setLevel == nil {
		return
	}
	s.setLevel(fc.LogLevel)
	s.logger.Info("log level changed", log.String("level", fc.LogLevel))
}
