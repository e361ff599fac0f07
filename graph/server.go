package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/siherrmann/linkgraph/helper"
)

const maxRequestBodySize = 1 << 20

// NewHandler creates the GraphQL handler for backend.
// Operations above complexityLimit are rejected, zero disables the limit.
func NewHandler(backend Backend, complexityLimit int, logger *slog.Logger) (*handler.Server, error) {
	if backend == nil {
		return nil, helper.NewError("backend validation", fmt.Errorf("backend is nil"))
	}
	if complexityLimit < 0 {
		return nil, helper.NewError("complexity limit validation", fmt.Errorf("complexity limit %d is negative", complexityLimit))
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := handler.New(NewExecutableSchema(Config{Resolvers: &Resolver{Backend: backend}}))

	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New(1000))
	srv.SetErrorPresenter(errorPresenter(logger))
	srv.SetRecoverFunc(recoverFunc(logger))

	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{
		Cache: lru.New(100),
	})
	if complexityLimit > 0 {
		srv.Use(extension.FixedComplexityLimit(complexityLimit))
	}

	return srv, nil
}

// Server serves the GraphQL endpoint, a health check and the playground
type Server struct {
	config *helper.ServerConfiguration
	log    *slog.Logger
	mux    *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new GraphQL HTTP server
func NewServer(config *helper.ServerConfiguration, backend Backend, logger *slog.Logger) (*Server, error) {
	if config == nil {
		return nil, helper.NewError("server configuration validation", fmt.Errorf("server configuration is nil"))
	}
	if config.EnablePlayground && config.Path == "/" {
		return nil, helper.NewError("server configuration validation", fmt.Errorf("path / is taken by the playground"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := NewHandler(backend, config.ComplexityLimit, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: config,
		log:    logger,
		mux:    http.NewServeMux(),
	}

	s.mux.Handle(config.Path, http.MaxBytesHandler(srv, maxRequestBodySize))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if config.EnablePlayground {
		s.mux.Handle("GET /{$}", playground.Handler("linkgraph", config.Path))
	}

	return s, nil
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return helper.NewError("start server", fmt.Errorf("server already running"))
	}
	server := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.log.Info("Server starting", slog.String("address", s.config.Address), slog.String("path", s.config.Path), slog.Bool("playground", s.config.EnablePlayground))

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Server context cancelled, shutting down")
		return s.Stop(30 * time.Second)
	case err := <-errChan:
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		if err != nil {
			return helper.NewError("listen and serve", err)
		}
		return nil
	}
}

// Stop shuts the server down, waiting up to timeout for open requests
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		return helper.NewError("shutdown server", err)
	}

	s.log.Info("Server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
