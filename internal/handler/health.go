package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports process liveness and database reachability.
type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{DB: db} }

// Healthz returns 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) Healthz(c echo.Context) error {
	if err := h.DB.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "db": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
