package intake

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bedside/bedside/internal/domain/patient"
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
	// Bedside devices authenticate with the "device" role; staff can also
	// submit on a patient's behalf.
	submit := api.Group("", auth.RequireRole("admin", "physician", "nurse", "device"))
	submit.POST("/requests", h.CreateRequest)

	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/requests/:id", h.GetRequest)
	read.GET("/patients/:id/requests", h.ListPatientRequests)
}

// CreateRequest handles POST /requests, running the full triage pipeline
// before replying.
func (h *Handler) CreateRequest(c echo.Context) error {
	var in ProcessInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Process(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "care request not found")
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListPatientRequests(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
