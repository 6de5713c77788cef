package schedgen

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Generator is the surface the HTTP handler needs from the service.
type Generator interface {
	Generate(ctx context.Context, req Request) Result
	Purge(ctx context.Context, facilityID uuid.UUID) (int, error)
}

// Handler exposes the generation engine over HTTP for demo/test
// environments. Runs are single-flight: a generate while one is in
// progress is rejected.
type Handler struct {
	svc Generator

	mu      sync.Mutex
	running bool
	last    *Result
}

func NewHandler(svc Generator) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the admin schedgen routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/schedgen/generate", h.handleGenerate)
	g.POST("/schedgen/purge", h.handlePurge)
	g.GET("/schedgen/status", h.handleStatus)
}

func (h *Handler) handleGenerate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if req.FacilityID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "facility_id is required"})
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{"error": "a generation run is already in progress"})
	}
	h.running = true
	h.mu.Unlock()

	result := h.svc.Generate(c.Request().Context(), req)

	h.mu.Lock()
	h.running = false
	h.last = &result
	h.mu.Unlock()

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}

func (h *Handler) handlePurge(c echo.Context) error {
	var body struct {
		FacilityID uuid.UUID `json:"facility_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if body.FacilityID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "facility_id is required"})
	}

	deleted, err := h.svc.Purge(c.Request().Context(), body.FacilityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"cases_deleted": deleted})
}

func (h *Handler) handleStatus(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return c.JSON(http.StatusOK, map[string]string{"status": "running"})
	}
	if h.last == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "idle"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "idle",
		"last":   h.last,
	})
}
