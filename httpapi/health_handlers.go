package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health, Ping, Status are the three unauthenticated liveness probes.
func (d *Deps) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (d *Deps) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "pong"})
}

func (d *Deps) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "standards-gateway",
	})
}
