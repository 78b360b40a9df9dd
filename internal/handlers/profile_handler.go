package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/labstack/echo/v4"
)

type ProfileService interface {
	Get(ctx context.Context, viewerID uint) (*models.Profile, error)
	Update(ctx context.Context, viewerID uint, req models.UpdateProfileRequest, avatar *services.Upload) (*models.Profile, error)
}

// ProfileHandler handles HTTP requests for the viewer's own profile
type ProfileHandler struct {
	profileService ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// RegisterProfileRoutes registers profile routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
}

// GetProfile retrieves the authenticated user's profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	profile, err := h.profileService.Get(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile saves the profile fields and, when an avatar part is present,
// replaces the avatar
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	viewerID := middleware.ViewerID(c)
	if viewerID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	avatar, file, err := formImage(c, "avatar")
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	profile, err := h.profileService.Update(c.Request().Context(), viewerID, req, avatar)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}
