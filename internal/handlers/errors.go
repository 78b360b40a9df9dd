package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/dongne-market/backend/internal/filters"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/anonto42/dongne-market/backend/pkg/storage"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps service errors onto status codes. Anything unrecognised is a
// gateway failure: it is logged here and the client gets a generic message.
func toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrAuthRequired), errors.Is(err, filters.ErrAnonymous):
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, services.ErrConflict), errors.Is(err, storage.ErrObjectExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	logger.Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Uint("viewer_id", middleware.ViewerID(c)).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong, please try again")
}

// idParam parses a numeric path parameter
func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// bindAndValidate binds the request into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
