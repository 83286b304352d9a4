// Package httpapi wires the gateway's domain services to Echo routes:
// server setup, the standard middleware stack, the uniform error
// envelope, and graceful shutdown.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"standards-gateway/apperr"
	"standards-gateway/common"
)

// ServerConfig holds what this gateway actually varies at startup.
type ServerConfig struct {
	Port            int
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64
}

func DefaultServerConfig(port int) ServerConfig {
	return ServerConfig{
		Port:            port,
		BodyLimit:       "50M", // matches the upload size cap
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    0, // streaming/export responses can run long
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
	}
}

// NewEcho builds an Echo instance with the standard middleware stack and
// the gateway's error handler.
func NewEcho(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestID())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	e.HTTPErrorHandler = ErrorHandler
	return e
}

// StartServer runs Echo with the configured timeouts until it is shut
// down; callers run this in its own goroutine.
func StartServer(e *echo.Echo, cfg ServerConfig) error {
	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	common.Logger.WithField("port", cfg.Port).Info("starting http server")
	if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// GracefulShutdown stops Echo within timeout, letting in-flight requests
// (including long streaming proxies) drain.
func GracefulShutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	common.Logger.Info("shutting down http server")
	return e.Shutdown(ctx)
}

// Envelope is the uniform JSON response body named in the external
// interface: {success, message, data?, errors?}.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func ok(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string, errs interface{}) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Errors: errs})
}

// ErrorHandler translates apperr.Error (and anything else) into the
// envelope shape, following the gateway's status-code conventions: most
// business failures degrade to 200/success=false, only structural faults
// (validation, auth, forbidden, conflict, upstream, internal) carry a
// non-2xx status, per apperr.Error.HTTPStatus.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if ae, ok2 := apperr.As(err); ok2 {
		status := ae.HTTPStatus()
		if err := c.JSON(status, Envelope{Success: false, Message: ae.Message, Errors: ae.Fields}); err != nil {
			common.Logger.WithError(err).Error("failed to write error response")
		}
		return
	}

	if he, isHTTPErr := err.(*echo.HTTPError); isHTTPErr {
		msg := fmt.Sprintf("%v", he.Message)
		if err := c.JSON(he.Code, Envelope{Success: false, Message: msg}); err != nil {
			common.Logger.WithError(err).Error("failed to write error response")
		}
		return
	}

	common.Logger.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled request error")
	if err := c.JSON(http.StatusInternalServerError, Envelope{Success: false, Message: "internal server error"}); err != nil {
		common.Logger.WithError(err).Error("failed to write error response")
	}
}
