package handler

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/response"
	"github.com/fixify-hostel/fixify-api/pkg/storage"
)

type signedMediaOpener interface {
	OpenSigned(token string) (*os.File, string, error)
}

// MediaHandler serves locally stored complaint images behind signed tokens.
type MediaHandler struct {
	store signedMediaOpener
}

func NewMediaHandler(store signedMediaOpener) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve godoc
// @Summary Download a complaint image
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Signed media token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	file, key, err := h.store.OpenSigned(c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenExpired), errors.Is(err, storage.ErrTokenSignature):
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "media link is invalid or expired"))
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media not found"))
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media not found"))
		return
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, path.Base(key), info.ModTime(), file)
}
