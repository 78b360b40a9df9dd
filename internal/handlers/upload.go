package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const maxImageSize = 10 << 20

// formImage opens an optional image part. The caller closes the returned file.
func formImage(c echo.Context, field string) (*services.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+field+" upload")
	}
	if fh.Size > maxImageSize {
		return nil, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image is larger than 10MB")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+field+" upload")
	}
	return &services.Upload{
		Body:        f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}, f, nil
}
