package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nutriclinic/nutriclinic/internal/config"
	"github.com/nutriclinic/nutriclinic/internal/domain/account"
	"github.com/nutriclinic/nutriclinic/internal/domain/patient"
	"github.com/nutriclinic/nutriclinic/internal/platform/auth"
	"github.com/nutriclinic/nutriclinic/internal/platform/db"
	"github.com/nutriclinic/nutriclinic/internal/platform/middleware"
	"github.com/nutriclinic/nutriclinic/pkg/pagination"
)

type serverDeps struct {
	issuer   *auth.TokenIssuer
	pinger   db.Pinger
	patients *patient.Handler
	accounts *account.Handler
}

// newServer assembles the echo instance: global middleware, health checks
// and the authenticated /api group.
func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(logger)
	// No trusted proxy in front; rate limits and audit key on the socket peer.
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{pagination.TotalCountHeader, pagination.LinkHeader, middleware.RequestIDHeader},
	}))
	if cfg.BodyLimit != "" {
		e.Use(echomw.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(deps.pinger))

	api := e.Group("/api", auth.JWTMiddleware(deps.issuer, auth.AuthSkipper), middleware.Audit(logger))
	deps.accounts.RegisterRoutes(api)
	deps.patients.RegisterRoutes(api)

	return e
}

// httpErrorHandler renders every error as {"error": "..."}. Internal causes
// are logged and never sent to the client.
func httpErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = fmt.Sprint(he.Message)
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		if code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Int("status", code).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"error": msg})
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}
