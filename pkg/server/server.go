// Package server exposes registered graphs over HTTP: a health check, a
// blocking invoke endpoint, an SSE stream endpoint and prometheus metrics.
package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/inference/graph"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAddr     = ":8000"
	shutdownTimeout = 10 * time.Second
)

// ErrNoGraphs is returned by New when no graph was registered.
var ErrNoGraphs = errors.New("server has no graphs")

type Server struct {
	addr           string
	requestTimeout time.Duration
	graphs         map[string]*graph.Graph
	eventRouter    *events.EventRouter
	ownsRouter     bool
	engine         *gin.Engine
}

type Option func(*Server)

func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithGraph registers g under its ID. A later graph with the same ID wins.
func WithGraph(g *graph.Graph) Option {
	return func(s *Server) {
		if g != nil {
			s.graphs[g.ID()] = g
		}
	}
}

// WithRequestTimeout bounds every invoke and stream request. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.requestTimeout = d
		}
	}
}

// WithEventRouter makes stream requests publish through an existing router.
// The caller keeps ownership and closes it.
func WithEventRouter(r *events.EventRouter) Option {
	return func(s *Server) { s.eventRouter = r }
}

func New(opts ...Option) (*Server, error) {
	s := &Server{
		addr:   DefaultAddr,
		graphs: map[string]*graph.Graph{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if len(s.graphs) == 0 {
		return nil, ErrNoGraphs
	}
	if s.eventRouter == nil {
		r, err := events.NewEventRouter(events.WithLogger(events.NewWatermillLogger(log.Logger)))
		if err != nil {
			return nil, errors.Wrap(err, "create event router")
		}
		s.eventRouter = r
		s.ownsRouter = true
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(), correlationID())
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := s.engine.Group("/graphs/:graph_id")
	{
		g.POST("/invoke", s.handleInvoke)
		g.POST("/stream", s.handleStream)
	}
}

// Handler returns the gin engine serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// GraphIDs lists the registered graph ids in sorted order.
func (s *Server) GraphIDs() []string {
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run serves HTTP until ctx is cancelled, then shuts the listener down and
// waits for in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", s.addr).Strs("graphs", s.GraphIDs()).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := eg.Wait()
	if s.ownsRouter {
		_ = s.eventRouter.Close()
	}
	return err
}
