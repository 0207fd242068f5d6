package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutriclinic/nutriclinic/internal/platform/auth"
)

const patientsPrefix = "/api/patients"

// Audit logs a "phi_access" event for every request under /api/patients.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			ctx := req.Context()
			patientID, section := parsePatientPath(req.URL.Path)
			var role string
			if roles := auth.RolesFromContext(ctx); len(roles) > 0 {
				role = roles[0]
			}
			requestID, _ := c.Get("request_id").(string)

			logger.Info().
				Str("event", "phi_access").
				Str("user_id", auth.UserIDFromContext(ctx)).
				Str("role", role).
				Str("action", methodToAction(req.Method, patientID)).
				Str("patient_id", patientID).
				Str("section", section).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Str("ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Str("request_id", requestID).
				Msg("audit")
			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return path == patientsPrefix || strings.HasPrefix(path, patientsPrefix+"/")
}

// parsePatientPath extracts the patient id and sub-record section from
// /api/patients/{id}[/{section}]. Non-UUID segments yield no id.
func parsePatientPath(path string) (patientID, section string) {
	rest := strings.Trim(strings.TrimPrefix(path, patientsPrefix), "/")
	if rest == "" {
		return "", ""
	}
	id, sec, _ := strings.Cut(rest, "/")
	if _, err := uuid.Parse(id); err != nil {
		return "", ""
	}
	return id, sec
}

func methodToAction(method, patientID string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if patientID == "" {
			return "list"
		}
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
