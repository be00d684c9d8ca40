package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/storage"
	"github.com/ardata-lab/ardata/internal/report"
)

const defaultRunListLimit = 20

// HealthChecker is implemented by components that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Engine *gin.Engine
	Addr   string

	health HealthChecker
	runs   storage.RunStore
	engine *report.Engine
}

func New(addr string, health HealthChecker, runs storage.RunStore, engine *report.Engine, gatherer prometheus.Gatherer, mode string) *Server {
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		health: health,
		runs:   runs,
		engine: engine,
	}

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	{
		api.POST("/reports", s.createReportHandler)
		api.GET("/reports", s.listReportsHandler)
		api.GET("/reports/:id", s.getReportHandler)
		api.GET("/sheets/:name", s.getSheetHandler)
	}

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			slog.Error("Health check failed: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

// createReportHandler runs a full report synchronously and returns the run
// record. A run already in flight maps to 409 so callers can poll instead
// of stacking runs.
func (s *Server) createReportHandler(c *gin.Context) {
	run, err := s.engine.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, report.ErrRunInProgress) {
			c.JSON(http.StatusConflict, v1.ErrorResponse{
				ErrorType: v1.ErrCodeRunActive,
				Message:   err.Error(),
			})
			return
		}
		// The failed run record still carries per-sheet outcomes.
		c.JSON(http.StatusInternalServerError, run)
		return
	}
	c.JSON(http.StatusCreated, run)
}

func (s *Server) listReportsHandler(c *gin.Context) {
	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{
				ErrorType: v1.ErrCodeInvalidBody,
				Message:   "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Failed to list report runs", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{
			ErrorType: v1.ErrCodeInternal,
			Message:   "failed to list report runs",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getReportHandler(c *gin.Context) {
	run, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{
			ErrorType: v1.ErrCodeNotFound,
			Message:   "report run not found",
		})
		return
	}
	if err != nil {
		slog.Error("Failed to get report run", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{
			ErrorType: v1.ErrCodeInternal,
			Message:   "failed to get report run",
		})
		return
	}
	c.JSON(http.StatusOK, run)
}

// getSheetHandler serves the named sheet from the latest completed run.
func (s *Server) getSheetHandler(c *gin.Context) {
	name := c.Param("name")
	sheet, runID, ok := s.engine.Sheet(name)
	if !ok {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{
			ErrorType: v1.ErrCodeNotFound,
			Message:   "sheet not found in latest run",
		})
		return
	}

	payload := v1.SheetPayload{
		Name:  sheet.Name,
		RunID: runID,
	}
	for _, col := range sheet.Table.Columns() {
		payload.Columns = append(payload.Columns, v1.SheetColumn{Name: col.Name, Kind: col.Kind})
	}
	for i := 0; i < sheet.Table.NumRows(); i++ {
		payload.Rows = append(payload.Rows, sheet.Table.Row(i))
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
