package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/matching"
	"github.com/spigell/jobfit/internal/pipeline"
)

// HeaderRunID carries the run id of a request back to the client.
const HeaderRunID = "X-Run-ID"

const shutdownTimeout = 10 * time.Second

// Recommender runs recommendations for a board.
type Recommender interface {
	Validate(boardURL string) error
	Recommend(ctx context.Context, profile matching.ResumeProfile, desired, boardURL string) ([]matching.MatchResult, error)
}

// ProfileExtractor turns resume text into a profile.
type ProfileExtractor interface {
	ExtractProfile(ctx context.Context, resumeText string) (matching.ResumeProfile, error)
}

type Options struct {
	Logger *zap.Logger
	// Gatherer backs /metrics. Nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP API.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
}

func New(recommender Recommender, extractor ProfileExtractor, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{echo: echo.New(), logger: opts.Logger}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(runID)
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	rh := &RecommendHandler{
		Recommender: recommender,
		Extractor:   extractor,
		Validate:    validator.New(),
		Logger:      opts.Logger,
	}
	rh.Register(api)
	(&SourcesHandler{}).Register(api)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// runID tags every request with a fresh run id.
func runID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := pipeline.NewRunID()
		req := c.Request()
		c.SetRequest(req.WithContext(pipeline.WithRunID(req.Context(), id)))
		c.Response().Header().Set(HeaderRunID, id)
		return next(c)
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	apiErr := toAPIError(err)

	req := c.Request()
	log := logger.WithFields(s.logger,
		zap.String(logger.FieldRunID, pipeline.RunID(req.Context())),
		zap.Int("status", apiErr.Status),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err),
	)
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Warn("request rejected")
	}

	if c.Response().Committed {
		return
	}
	if req.Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
