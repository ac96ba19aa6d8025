package records

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient-facing record endpoints on a
// session-authenticated group.
func (h *Handler) RegisterRoutes(patients *echo.Group) {
	patients.GET("/:id/records", h.ListRecords)
}

func (h *Handler) ListRecords(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	// A patient can only read their own records. Someone else's id gets a
	// 404 rather than confirming the patient exists.
	if auth.PatientFromContext(c.Request().Context()) != id {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	var categories []string
	if raw := c.QueryParam("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				categories = append(categories, part)
			}
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), id, categories, pg.Limit, pg.Offset)
	if err != nil {
		if _, ok := err.(*echo.HTTPError); ok {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
