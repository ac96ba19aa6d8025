package access

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/patient"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the provider access flows on the public group and
// the audit log on the session-authenticated patients group.
func (h *Handler) RegisterRoutes(api, patients *echo.Group) {
	api.POST("/provider/access", h.TokenAccess)
	api.POST("/provider/otp-access", h.OTPAccess)
	api.POST("/provider/emergency-access", h.EmergencyAccess)

	patients.GET("/:id/access-logs", h.ListAccessLogs)
}

func requester(c echo.Context, organizationSlug, employeeID string) Requester {
	return Requester{
		OrganizationSlug: organizationSlug,
		EmployeeID:       employeeID,
		IPAddress:        c.RealIP(),
		UserAgent:        c.Request().UserAgent(),
	}
}

func denied(err error) error {
	switch {
	case errors.Is(err, ErrInvalidOrganization),
		errors.Is(err, ErrInvalidEmployee),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrProviderNotAuthorized),
		errors.Is(err, ErrEmergencyNotEnabled),
		errors.Is(err, auth.ErrCodeInvalid):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "access request failed")
}

type tokenAccessRequest struct {
	Token            string `json:"token"`
	EmployeeID       string `json:"employee_id"`
	OrganizationSlug string `json:"organization_slug"`
}

func (h *Handler) TokenAccess(c echo.Context) error {
	var req tokenAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" || req.OrganizationSlug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and organization_slug are required")
	}

	grant, err := h.svc.TokenAccess(c.Request().Context(), req.Token, requester(c, req.OrganizationSlug, req.EmployeeID))
	if err != nil {
		return denied(err)
	}
	return c.JSON(http.StatusOK, grantResponse(grant))
}

type otpAccessRequest struct {
	Action           string    `json:"action"`
	PatientID        uuid.UUID `json:"patient_id"`
	EmployeeID       string    `json:"employee_id"`
	OrganizationSlug string    `json:"organization_slug"`
	Code             string    `json:"code"`
}

func (h *Handler) OTPAccess(c echo.Context) error {
	var req otpAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil || req.EmployeeID == "" || req.OrganizationSlug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id, employee_id and organization_slug are required")
	}

	r := requester(c, req.OrganizationSlug, req.EmployeeID)
	switch req.Action {
	case "request-otp":
		info, err := h.svc.RequestOTPAccess(c.Request().Context(), req.PatientID, r)
		if err != nil {
			return denied(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":      true,
			"masked_email": info.MaskedEmail,
			"scope":        info.Scope.Strings(),
		})
	case "verify-otp":
		if req.Code == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "code is required")
		}
		grant, err := h.svc.VerifyOTPAccess(c.Request().Context(), req.PatientID, req.Code, r)
		if err != nil {
			return denied(err)
		}
		return c.JSON(http.StatusOK, grantResponse(grant))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "action must be request-otp or verify-otp")
}

type emergencyAccessRequest struct {
	PatientID        uuid.UUID `json:"patient_id"`
	EmployeeID       string    `json:"employee_id"`
	OrganizationSlug string    `json:"organization_slug"`
}

func (h *Handler) EmergencyAccess(c echo.Context) error {
	var req emergencyAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil || req.EmployeeID == "" || req.OrganizationSlug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id, employee_id and organization_slug are required")
	}

	grant, err := h.svc.EmergencyAccess(c.Request().Context(), req.PatientID, requester(c, req.OrganizationSlug, req.EmployeeID))
	if err != nil {
		return denied(err)
	}
	return c.JSON(http.StatusOK, grantResponse(grant))
}

func grantResponse(g *Grant) map[string]interface{} {
	resp := map[string]interface{}{
		"success":         true,
		"patient_id":      g.PatientID,
		"patient_name":    g.PatientName,
		"scope":           g.Scope.Strings(),
		"has_full_access": g.HasFullAccess,
		"records":         g.Records,
	}
	if g.Summary != nil {
		resp["summary"] = g.Summary
	}
	if g.Warning != "" {
		resp["warning"] = g.Warning
	}
	if g.IsEmergency {
		resp["is_emergency"] = true
	}
	return resp
}

func (h *Handler) ListAccessLogs(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if auth.PatientFromContext(c.Request().Context()) != id {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLogs(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list access logs")
	}
	if items == nil {
		items = []*AccessLogEntry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
