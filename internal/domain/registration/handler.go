package registration

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("registrar"))
	g.POST("/sessions", h.StartSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.EndSession)
	g.PUT("/sessions/:id/input", h.UpdateInput)
	g.POST("/sessions/:id/submit", h.Submit)
	g.POST("/sessions/:id/reset", h.Reset)
	g.GET("/sessions/:id/card", h.GetCard)
	g.GET("/age", h.ComputeAge)
	g.GET("/person-attribute-types", h.ListAttributeTypes)
}

type submitRequest struct {
	Print bool `json:"print"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) StartSession(c echo.Context) error {
	loc := auth.LocationFromContext(c.Request().Context())
	view, err := h.svc.StartSession(c.Request().Context(), Location{ID: loc.UUID, Name: loc.Name})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) GetSession(c echo.Context) error {
	view, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) EndSession(c echo.Context) error {
	if err := h.svc.EndSession(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateInput(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	view, err := h.svc.UpdateInput(c.Param("id"), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// Submit always answers 200 once the submission ran; the outcome kind tells
// success from failure.
func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := h.svc.Submit(c.Request().Context(), c.Param("id"), req.Print)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Reset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Confirm {
		return echo.NewHTTPError(http.StatusBadRequest, "reset must be confirmed")
	}
	view, err := h.svc.Reset(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) GetCard(c echo.Context) error {
	a, err := h.svc.Card(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Content-Security-Policy", card.ContentSecurityPolicy)
	return c.Blob(http.StatusOK, a.ContentType, a.Body)
}

func (h *Handler) ComputeAge(c echo.Context) error {
	birthdate := c.QueryParam("birthdate")
	if birthdate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "birthdate is required")
	}
	a, err := h.svc.AgeOf(birthdate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "birthdate must be YYYY-MM-DD")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAttributeTypes(c echo.Context) error {
	types, err := h.svc.AttributeTypes(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": types,
		"count":   len(types),
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "registration session not found")
	case errors.Is(err, ErrSubmissionInFlight):
		return echo.NewHTTPError(http.StatusConflict, "a submission is already in progress")
	case errors.Is(err, ErrSchemaUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "person attribute types unavailable, reload to retry")
	case errors.Is(err, ErrNothingToPrint):
		return echo.NewHTTPError(http.StatusNotFound, "no registered patient to print")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
