package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"standards-gateway/apperr"
)

// RelatedData → GET /neo4j/related-data?standard_name=...
func (d *Deps) RelatedData(c echo.Context) error {
	if d.Graph == nil {
		return apperr.New(apperr.KindUpstreamError, "graph database not configured")
	}
	name := c.QueryParam("standard_name")
	if name == "" {
		return apperr.Validation("standard_name is required", map[string]string{"standard_name": "required"})
	}
	result, err := d.Graph.RelatedData(c.Request().Context(), name)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamError, "graph query failed", err)
	}
	return ok(c, http.StatusOK, "", result)
}

// GraphHealth → GET /neo4j/health.
func (d *Deps) GraphHealth(c echo.Context) error {
	if d.Graph == nil {
		return apperr.New(apperr.KindUpstreamError, "graph database not configured")
	}
	if err := d.Graph.Ping(c.Request().Context()); err != nil {
		return apperr.Wrap(apperr.KindUpstreamError, "graph database unreachable", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
