package file

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for form boundaries and part headers
// on top of the payload ceiling.
const multipartOverhead = 1 << 20

// RegisterRoutes mounts file operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{service: service, logger: logger}
	group.POST("/file-upload", handler.uploadFile)
	group.GET("/file-get", handler.getFile)
	group.GET("/file-list", handler.listFiles)
	group.DELETE("/file-delete", handler.deleteFile)
	group.GET("/file-preview", handler.previewFile)
}

type httpHandler struct {
	service *Service
	logger  *zap.Logger
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	maxSize := h.service.MaxFileSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			// the payload size is unknown once the body limit trips
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   tooLargeMessage(maxSize),
				"maxSize": maxSize,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded. Use 'file' as the field name."})
		return
	}

	name := uploadedName(fileHeader)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}
	if !IsSafe(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename. Filename cannot contain path separators."})
		return
	}
	if fileHeader.Size > maxSize {
		h.tooLarge(c, maxSize, fileHeader.Size)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.internalError(c, "open upload", err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		h.internalError(c, "read upload", err)
		return
	}

	rec, err := h.service.Put(c.Request.Context(), name, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "File already exists"})
		case errors.Is(err, ErrTooLarge):
			h.tooLarge(c, maxSize, int64(len(data)))
		default:
			h.internalError(c, "upload", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"filename":   rec.Name,
		"size":       rec.Size,
		"uploadTime": rec.UploadTime,
		"code":       rec.Code,
		"path":       DownloadPath(rec.Name),
	})
}

// uploadedName returns the filename exactly as the client sent it.
// multipart strips directories from FileHeader.Filename, which would turn
// "../x" into an acceptable "x".
func uploadedName(fh *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(fh.Header.Get("Content-Disposition"))
	if err != nil {
		return fh.Filename
	}
	if raw, ok := params["filename"]; ok {
		return raw
	}
	return fh.Filename
}

func tooLargeMessage(maxSize int64) string {
	return "File too large. Maximum size is " + humanize.IBytes(uint64(maxSize)) + "."
}

func (h *httpHandler) tooLarge(c *gin.Context, maxSize, fileSize int64) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":    tooLargeMessage(maxSize),
		"maxSize":  maxSize,
		"fileSize": fileSize,
	})
}

func (h *httpHandler) getFile(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameter 'name'"})
		return
	}

	data, err := h.service.Get(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		default:
			h.internalError(c, "download", err)
		}
		return
	}

	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, ContentType(name), data)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameter 'code'"})
		return
	}

	rec, err := h.service.DeleteByToken(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code format"})
		case errors.Is(err, ErrNotFoundOrInvalidCode):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found or code invalid"})
		default:
			h.internalError(c, "delete", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "filename": rec.Name})
}

func (h *httpHandler) previewFile(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameter 'code'"})
		return
	}

	preview, err := h.service.PreviewByToken(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code format"})
		case errors.Is(err, ErrNotFoundOrInvalidCode):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found or code invalid"})
		case errors.Is(err, ErrNotFoundOnDisk):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found on disk"})
		default:
			h.internalError(c, "preview", err)
		}
		return
	}

	c.JSON(http.StatusOK, preview)
}

func (h *httpHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
