package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	sessions *auth.SessionManager
}

func NewHandler(svc *Service, sessions *auth.SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes mounts the login flow on the public group and the profile
// endpoints on the session-authenticated patients group.
func (h *Handler) RegisterRoutes(api, patients *echo.Group) {
	api.POST("/auth/send-otp", h.SendOTP)
	api.POST("/auth/verify-otp", h.VerifyOTP)
	api.POST("/auth/logout", h.Logout)

	patients.GET("/:id/settings", h.GetSettings)
	patients.PATCH("/:id/settings", h.UpdateSettings)
}

// RegisterSessionProbe mounts GET /auth/session behind the optional session
// middleware so a missing cookie yields {authenticated: false}, not an error.
func (h *Handler) RegisterSessionProbe(api *echo.Group, soft echo.MiddlewareFunc) {
	api.GET("/auth/session", h.Session, soft)
}

type sendOTPRequest struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
}

func (h *Handler) SendOTP(c echo.Context) error {
	var req sendOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}

	start, err := h.svc.StartLogin(c.Request().Context(), req.Name, dob)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no matching patient found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"patient_id":   start.PatientID,
		"masked_email": start.MaskedEmail,
	})
}

type verifyOTPRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Code      string    `json:"code"`
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and code are required")
	}

	p, err := h.svc.VerifyLogin(c.Request().Context(), req.PatientID, req.Code)
	if err != nil {
		if errors.Is(err, auth.ErrCodeInvalid) || errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, auth.ErrCodeInvalid.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}

	token, err := h.sessions.Issue(p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue session")
	}
	h.sessions.SetCookie(c, token)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"patient": p,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	h.sessions.ClearCookie(c)
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) Session(c echo.Context) error {
	pid := auth.PatientFromContext(c.Request().Context())
	if pid == uuid.Nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"authenticated": false})
	}
	p, err := h.svc.Get(c.Request().Context(), pid)
	if err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"authenticated": false})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"patient":       p,
	})
}

func (h *Handler) GetSettings(c echo.Context) error {
	id, err := h.ownPatientID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": Settings{AllowEmergencyAccess: p.AllowEmergencyAccess},
	})
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	id, err := h.ownPatientID(c)
	if err != nil {
		return err
	}
	var s Settings
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateSettings(c.Request().Context(), id, s)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update settings")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": Settings{AllowEmergencyAccess: p.AllowEmergencyAccess},
	})
}

// ownPatientID parses the :id param and enforces that it matches the session
// patient. Mismatches come back as 404.
func (h *Handler) ownPatientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if auth.PatientFromContext(c.Request().Context()) != id {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return id, nil
}
