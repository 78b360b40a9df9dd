package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/filters"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// LocationLister returns every neighborhood that has items
type LocationLister interface {
	Locations(ctx context.Context) ([]string, error)
}

// SelectLocationRequest sets the viewer's neighborhood; blank clears it
type SelectLocationRequest struct {
	Location string `json:"location" validate:"max=50"`
}

// LocationHandler serves the neighborhood filter
type LocationHandler struct {
	lister LocationLister
	state  filters.LocationState
}

func NewLocationHandler(lister LocationLister, state filters.LocationState) *LocationHandler {
	return &LocationHandler{lister: lister, state: state}
}

func (h *LocationHandler) RegisterLocationRoutes(g *echo.Group) {
	g.GET("/locations", h.ListLocations)
	g.GET("/locations/selected", h.GetSelected)
	g.PUT("/locations/selected", h.Select)
}

func (h *LocationHandler) ListLocations(c echo.Context) error {
	locs, err := h.lister.Locations(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, locs)
}

func (h *LocationHandler) GetSelected(c echo.Context) error {
	loc, err := h.state.Selected(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"location": loc})
}

func (h *LocationHandler) Select(c echo.Context) error {
	var req SelectLocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.state.Select(c.Request().Context(), middleware.ViewerID(c), req.Location); err != nil {
		return toHTTPError(c, err)
	}
	return h.GetSelected(c)
}
