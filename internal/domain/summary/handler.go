package summary

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(patients *echo.Group) {
	patients.GET("/:id/summary", h.GetSummary)
	patients.POST("/:id/summary", h.GenerateSummary)
}

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

func (h *Handler) GetSummary(c echo.Context) error {
	pid, err := h.ownPatientID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Get(c.Request().Context(), pid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "summary not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load summary")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": s,
	})
}

func (h *Handler) GenerateSummary(c echo.Context) error {
	pid, err := h.ownPatientID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Generate(c.Request().Context(), pid)
	if err != nil {
		if errors.Is(err, ErrNoRecords) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrNoRecords.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate summary")
	}
	if !res.Allowed {
		// Cooldown refusal carries a structured retry hint.
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"error":          "summary was generated recently, try again later",
			"retry_after_ms": res.RetryAfterMS,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": res.Summary,
	})
}
