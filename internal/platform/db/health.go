package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// HealthStatus is the liveness payload served to ward monitoring.
type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseStatus `json:"database"`
	Time     time.Time      `json:"time"`
}

// DatabaseStatus reports reachability and pool pressure. A ward hitting
// max_conns during rounds shows up here before requests start timing out.
type DatabaseStatus struct {
	Reachable     bool   `json:"reachable"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	Error         string `json:"error,omitempty"`
}

// HealthHandler returns the handler for the health check endpoint.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stat := pool.Stat()
		status := HealthStatus{
			Status: "healthy",
			Database: DatabaseStatus{
				Reachable:     true,
				TotalConns:    stat.TotalConns(),
				IdleConns:     stat.IdleConns(),
				AcquiredConns: stat.AcquiredConns(),
				MaxConns:      stat.MaxConns(),
			},
			Time: time.Now().UTC(),
		}

		if err := pool.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Database.Reachable = false
			status.Database.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}
