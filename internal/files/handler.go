package files

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 50 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive limit uses the default.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches file routes to the group. uploadMiddleware runs
// only in front of the upload route.
func (h *Handler) RegisterRoutes(rg gin.IRoutes, uploadMiddleware ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, uploadMiddleware...), h.upload)
	rg.POST("/upload", handlers...)
	rg.GET("/files", h.list)
	rg.DELETE("/files/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "File exceeds the upload size limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read uploaded file", nil)
		return
	}
	defer file.Close()

	rec, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OriginalName: fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoPayload):
			respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		case errors.Is(err, ErrInvalidRecord):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid file", nil)
		default:
			internalError(c, "Error uploading file", err)
		}
		return
	}

	c.Set("fileId", rec.ID)
	respond.Created(c, rec)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context())
	if err != nil {
		internalError(c, "Error fetching files", err)
		return
	}
	respond.JSON(c, http.StatusOK, items)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("fileId", id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
		default:
			internalError(c, "Error deleting file", err)
		}
		return
	}

	respond.Message(c, "File deleted successfully")
}

func internalError(c *gin.Context, message string, cause error) {
	_ = c.Error(cause)
	respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}
