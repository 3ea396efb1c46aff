package local

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/shared/server/respond"
	"s3drive-backend/internal/shared/storage/object"
)

// RegisterRoutes serves signed blob links. The router group must be mounted
// at the engine root so that links produced by PresignGet resolve.
func (s *Store) RegisterRoutes(r gin.IRoutes) {
	r.GET(BlobRoute, s.serve)
}

func (s *Store) serve(c *gin.Context) {
	key := c.Param("key")
	if err := s.Verify(key, c.Query("expires"), c.Query("signature")); err != nil {
		respond.Error(c, http.StatusForbidden, "forbidden", "link is invalid or expired", nil)
		return
	}

	rc, err := s.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) || errors.Is(err, ErrInvalidKey) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read file", nil)
		return
	}
	defer rc.Close()

	size := int64(-1)
	if f, ok := rc.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
	}

	contentType := s.ContentType(key)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	dispositionType := "attachment"
	if previewable(contentType) {
		dispositionType = "inline"
	}
	disposition := mime.FormatMediaType(dispositionType, map[string]string{"filename": key})
	if disposition == "" {
		disposition = dispositionType
	}

	c.DataFromReader(http.StatusOK, size, contentType, rc, map[string]string{
		"Content-Disposition":     disposition,
		"Content-Security-Policy": "sandbox",
		"X-Content-Type-Options":  "nosniff",
	})
}

// previewable reports whether a browser may render the type in place
// without running script on this origin.
func previewable(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case mediaType == "image/svg+xml":
		return false
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "video/"),
		strings.HasPrefix(mediaType, "audio/"):
		return true
	}
	return mediaType == "application/pdf" || mediaType == "text/plain"
}
