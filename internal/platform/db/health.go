package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// healthPingTimeout bounds the liveness ping so a wedged pool cannot hang
// the health endpoint.
const healthPingTimeout = 5 * time.Second

// ConnStats is the pool snapshot included in health responses.
type ConnStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// Health is the body returned by the health endpoint. Status is "ok" when
// the facility database answers a ping, "unavailable" otherwise.
type Health struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Conns  ConnStats `json:"conns"`
}

// Snapshot captures the pool's current connection counts.
func Snapshot(pool *pgxpool.Pool) ConnStats {
	s := pool.Stat()
	return ConnStats{
		Total:    s.TotalConns(),
		Idle:     s.IdleConns(),
		Acquired: s.AcquiredConns(),
		Max:      s.MaxConns(),
	}
}

// HealthHandler reports whether the facility database is reachable. The
// generator cannot run without it, so deployments gate traffic on this
// endpoint.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		h := Health{Status: "ok", Conns: Snapshot(pool)}
		if err := pool.Ping(ctx); err != nil {
			h.Status = "unavailable"
			h.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, h)
		}
		return c.JSON(http.StatusOK, h)
	}
}
