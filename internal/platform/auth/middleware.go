package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const patientIDKey contextKey = "patient_id"

// SessionConfig controls how the patient session middleware authenticates
// requests. Bypass is the AUTH_MODE=dev-bypass switch: when set,
// unauthenticated requests act as DemoPatientID instead of being rejected.
// It is resolved once at startup, never inside handlers.
type SessionConfig struct {
	Manager       *SessionManager
	Bypass        bool
	DemoPatientID uuid.UUID
}

// PatientSession authenticates patient-facing routes from the session cookie
// and stores the patient ID in the request context.
func PatientSession(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				pid, verr := cfg.Manager.Verify(cookie.Value)
				if verr == nil {
					setPatient(c, pid)
					return next(c)
				}
			}

			if cfg.Bypass && cfg.DemoPatientID != uuid.Nil {
				setPatient(c, cfg.DemoPatientID)
				return next(c)
			}

			return echo.NewHTTPError(http.StatusForbidden, "authentication required")
		}
	}
}

// OptionalPatientSession resolves the session like PatientSession but lets
// unauthenticated requests through with no patient set. Used by the session
// probe endpoint.
func OptionalPatientSession(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				if pid, verr := cfg.Manager.Verify(cookie.Value); verr == nil {
					setPatient(c, pid)
					return next(c)
				}
			}
			if cfg.Bypass && cfg.DemoPatientID != uuid.Nil {
				setPatient(c, cfg.DemoPatientID)
			}
			return next(c)
		}
	}
}

func setPatient(c echo.Context, pid uuid.UUID) {
	ctx := context.WithValue(c.Request().Context(), patientIDKey, pid)
	c.SetRequest(c.Request().WithContext(ctx))
	c.Set("patient_id", pid.String())
}

// PatientFromContext returns the authenticated patient ID, or uuid.Nil.
func PatientFromContext(ctx context.Context) uuid.UUID {
	pid, _ := ctx.Value(patientIDKey).(uuid.UUID)
	return pid
}
