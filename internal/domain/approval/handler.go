package approval

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bedside/bedside/internal/platform/auth"
	"github.com/bedside/bedside/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	staff.GET("/approvals", h.ListEntries)
	staff.GET("/approvals/:id", h.GetEntry)
	staff.POST("/approvals/:id/resolve", h.ResolveEntry)
}

// ListEntries handles GET /approvals. An optional ?status= filter narrows the
// listing; pending entries sort by SLA deadline so the most urgent come first.
func (h *Handler) ListEntries(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "approval entry not found")
	}
	return c.JSON(http.StatusOK, e)
}

type resolveRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ResolveEntry handles POST /approvals/:id/resolve. The resolving staff
// member is taken from the authenticated user.
func (h *Handler) ResolveEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resolvedBy := auth.UserIDFromContext(c.Request().Context())

	e, err := h.svc.Resolve(c.Request().Context(), id, req.Status, resolvedBy, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "approval entry not found")
		case errors.Is(err, ErrInvalidState):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, e)
}
