package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/filters"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/labstack/echo/v4"
)

type ItemService interface {
	Create(ctx context.Context, viewerID uint, req models.CreateItemRequest, image *services.Upload) (*models.Item, error)
	View(ctx context.Context, id string) (*models.Item, error)
	Update(ctx context.Context, id string, viewerID uint, req models.UpdateItemRequest) (*models.Item, error)
	List(ctx context.Context, location string) ([]models.Item, error)
	Search(ctx context.Context, query string) ([]models.ItemSummary, error)
	Locations(ctx context.Context) ([]string, error)
	Selling(ctx context.Context, viewerID uint) ([]models.Item, error)
	Liked(ctx context.Context, viewerID uint) ([]models.Item, error)
}

// ItemHandler handles marketplace listing requests
type ItemHandler struct {
	itemService ItemService
	locations   filters.LocationState
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemService ItemService, locations filters.LocationState) *ItemHandler {
	return &ItemHandler{itemService: itemService, locations: locations}
}

// RegisterItemRoutes registers item routes and the viewer's "my page" lists
func (h *ItemHandler) RegisterItemRoutes(g *echo.Group) {
	g.GET("/items", h.ListItems)
	g.GET("/items/search", h.SearchItems)
	g.POST("/items", h.CreateItem)
	g.GET("/items/:id", h.GetItem)
	g.PUT("/items/:id", h.UpdateItem)
	g.GET("/me/items", h.GetSellingItems)
	g.GET("/me/likes", h.GetLikedItems)
}

// ListItems returns items newest first. Without a location query parameter the
// viewer's selected location applies.
func (h *ItemHandler) ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	location, explicit := c.QueryParams()["location"]
	var loc string
	if explicit {
		loc = location[0]
	} else {
		selected, err := h.locations.Selected(ctx, middleware.ViewerID(c))
		if err != nil {
			return toHTTPError(c, err)
		}
		loc = selected
	}

	items, err := h.itemService.List(ctx, loc)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) SearchItems(c echo.Context) error {
	items, err := h.itemService.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// CreateItem lists a new item from a multipart form with an optional image part
func (h *ItemHandler) CreateItem(c echo.Context) error {
	viewerID := middleware.ViewerID(c)
	if viewerID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	var req models.CreateItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	image, file, err := formImage(c, "image")
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	item, err := h.itemService.Create(c.Request().Context(), viewerID, req, image)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// GetItem returns an item and counts the view
func (h *ItemHandler) GetItem(c echo.Context) error {
	item, err := h.itemService.View(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) UpdateItem(c echo.Context) error {
	var req models.UpdateItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	item, err := h.itemService.Update(c.Request().Context(), c.Param("id"), middleware.ViewerID(c), req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) GetSellingItems(c echo.Context) error {
	items, err := h.itemService.Selling(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) GetLikedItems(c echo.Context) error {
	items, err := h.itemService.Liked(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
