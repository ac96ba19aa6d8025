package directory

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public directory endpoints. Providers use the
// organization list to pick their hospital on the access forms.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/organizations", h.ListOrganizations)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	orgs, err := h.svc.ListOrganizations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list organizations")
	}
	if orgs == nil {
		orgs = []*Organization{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"organizations": orgs,
	})
}
