package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rahul/agentflow/internal/store"
)

const ChannelHTTP = "http"

// RunReader looks up recorded runs.
type RunReader interface {
	GetRun(ctx context.Context, id string) (store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// HTTPGateway exposes task submission, run lookup and metrics over HTTP.
type HTTPGateway struct {
	Address string
	Echo    *echo.Echo
	Queue   Submitter
	Runs    RunReader
}

type submitRequest struct {
	Prompt string `json:"prompt"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func NewHTTPGateway(addr string, q Submitter, runs RunReader, gatherer prometheus.Gatherer) *HTTPGateway {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	h := &HTTPGateway{Address: addr, Echo: e, Queue: q, Runs: runs}
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/tasks", h.submit)
	e.GET("/tasks", h.list)
	e.GET("/tasks/:id", h.get)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return h
}

func (h *HTTPGateway) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP gateway listening on %s", h.Address)
		errCh <- h.Echo.Start(h.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return h.Stop()
	}
}

func (h *HTTPGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Echo.Shutdown(ctx)
}

func (h *HTTPGateway) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	id, err := submit(c.Request().Context(), h.Queue, ChannelHTTP, "", req.Prompt)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusAccepted, submitResponse{ID: id, Status: store.StatusQueued})
}

func (h *HTTPGateway) get(c echo.Context) error {
	if h.Runs == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "run history is disabled")
	}
	run, err := h.Runs.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		// The worker records a run once it dequeues it.
		return c.JSON(http.StatusNotFound, map[string]string{"id": c.Param("id"), "error": "run not found or still queued"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (h *HTTPGateway) list(c echo.Context) error {
	if h.Runs == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "run history is disabled")
	}
	runs, err := h.Runs.ListRuns(c.Request().Context(), 20)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return c.JSON(http.StatusOK, runs)
}
