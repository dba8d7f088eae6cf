package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/middleware"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/response"
)

const uploadField = "image"

// requireViewer writes 401 and reports false for anonymous requests.
func requireViewer(c *gin.Context) (models.Viewer, bool) {
	viewer := middleware.CurrentViewer(c)
	if !viewer.Authenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Viewer{}, false
	}
	return viewer, true
}

// pageParams reads page and limit query parameters; bad values fall back to
// the service defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formUpload returns the image part of a multipart request, or nil when the
// part is absent. The returned close func must be called once done.
func formUpload(c *gin.Context) (*dto.Upload, func(), error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "image could not be read")
	}
	return &dto.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func bindError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg)
}
