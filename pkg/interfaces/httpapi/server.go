package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/events"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

const (
	defaultServiceName = "prodplan"
	shutdownTimeout    = 10 * time.Second
)

// Planner is the planning use case the handlers drive
type Planner interface {
	Run(ctx context.Context, input dto.PlanningInput) (*dto.PlanningResult, error)
	Confirm(ctx context.Context, result *dto.PlanningResult, overrides []entities.Override) (*dto.PlanningResult, error)
	AddLine(ctx context.Context, result *dto.PlanningResult, code entities.ProductCode, machineID entities.MachineID, qty decimal.Decimal) (*dto.PlanningResult, error)
	Get(ctx context.Context, runID string) (*dto.PlanningResult, error)
	List(ctx context.Context) ([]*dto.PlanningResult, error)
	Events(runID string) ([]events.Record, error)
	AuditLog(from int) ([]events.Record, error)
}

// Options configures the server
type Options struct {
	ServiceName string
	// Policy is the base every request policy is merged over
	Policy entities.PlanningPolicy
	Logger *logger.Logger
	// Now stamps the as-of date of requests that leave it out
	Now func() time.Time
}

// Server exposes planning runs over HTTP
type Server struct {
	engine  *gin.Engine
	planner Planner
	policy  entities.PlanningPolicy
	log     *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewServer wires the routes
func NewServer(planner Planner, opts Options) *Server {
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		engine:  gin.New(),
		planner: planner,
		policy:  opts.Policy,
		log:     logger.OrNop(opts.Logger),
		tracer:  otel.Tracer("github.com/vsinha/prodplan/pkg/interfaces/httpapi"),
		now:     now,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(otelgin.Middleware(serviceName))
	s.engine.Use(s.requestLogger())

	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/v1")
	v1.POST("/runs", s.createRun)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	v1.POST("/runs/:id/confirm", s.confirmRun)
	v1.GET("/runs/:id/events", s.runEvents)
	v1.GET("/runs/:id/workbook", s.runWorkbook)
	v1.POST("/runs/:id/template", s.fillTemplate)
	v1.GET("/events", s.auditLog)

	return s
}

// Handler returns the routed engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// requestLogger logs one line per request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.log.Error("http request", kv...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.log.Warn("http request", kv...)
		default:
			s.log.Debug("http request", kv...)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "prodplan",
	})
}
