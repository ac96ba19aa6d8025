package sharing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the token and provider management endpoints on the
// session-authenticated patients group.
func (h *Handler) RegisterRoutes(patients *echo.Group) {
	patients.GET("/:id/tokens", h.ListTokens)
	patients.POST("/:id/tokens", h.CreateToken)
	patients.PATCH("/:id/tokens/:tokenID", h.RevokeToken)
	patients.DELETE("/:id/tokens/:tokenID", h.DeleteToken)

	patients.GET("/:id/providers", h.ListProviders)
	patients.POST("/:id/providers", h.CreateProvider)
	patients.PATCH("/:id/providers/:providerID", h.UpdateProvider)
	patients.DELETE("/:id/providers/:providerID", h.DeleteProvider)
}

func ownPatientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if auth.PatientFromContext(c.Request().Context()) != id {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return id, nil
}

// -- Share tokens --

type createTokenRequest struct {
	Scope    []string `json:"scope"`
	TTLHours int      `json:"ttl_hours"`
}

func (h *Handler) CreateToken(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	var req createTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scope, err := records.ParseScope(req.Scope)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.CreateToken(c.Request().Context(), pid, scope, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"token":   t,
	})
}

func (h *Handler) ListTokens(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	tokens, err := h.svc.ListTokens(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tokens")
	}
	if tokens == nil {
		tokens = []*ShareToken{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"tokens":  tokens,
	})
}

func (h *Handler) RevokeToken(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	tokenID, err := uuid.Parse(c.Param("tokenID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token id")
	}
	t, err := h.svc.RevokeToken(c.Request().Context(), pid, tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "token not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke token")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   t,
	})
}

func (h *Handler) DeleteToken(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	tokenID, err := uuid.Parse(c.Param("tokenID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token id")
	}
	if err := h.svc.DeleteToken(c.Request().Context(), pid, tokenID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "token not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete token")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// -- Provider authorizations --

type providerRequest struct {
	ProviderName string     `json:"provider_name"`
	Organization *string    `json:"organization"`
	Email        *string    `json:"email"`
	EmployeeRef  *uuid.UUID `json:"employee_ref"`
	Scope        []string   `json:"scope"`
}

func (h *Handler) CreateProvider(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	var req providerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := &ProviderAuthorization{
		PatientID:    pid,
		ProviderName: req.ProviderName,
		Organization: req.Organization,
		Email:        req.Email,
		EmployeeRef:  req.EmployeeRef,
		Scope:        records.ScopeFromStrings(req.Scope),
	}
	if err := h.svc.CreateProvider(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":  true,
		"provider": p,
	})
}

func (h *Handler) ListProviders(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	providers, err := h.svc.ListProviders(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list providers")
	}
	if providers == nil {
		providers = []*ProviderAuthorization{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"providers": providers,
	})
}

func (h *Handler) UpdateProvider(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	var req providerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	upd := &ProviderAuthorization{
		ProviderName: req.ProviderName,
		Organization: req.Organization,
		Email:        req.Email,
		EmployeeRef:  req.EmployeeRef,
	}
	if req.Scope != nil {
		upd.Scope = records.ScopeFromStrings(req.Scope)
	}
	p, err := h.svc.UpdateProvider(c.Request().Context(), pid, providerID, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "provider not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"provider": p,
	})
}

func (h *Handler) DeleteProvider(c echo.Context) error {
	pid, err := ownPatientID(c)
	if err != nil {
		return err
	}
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	if err := h.svc.DeleteProvider(c.Request().Context(), pid, providerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "provider not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete provider")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
