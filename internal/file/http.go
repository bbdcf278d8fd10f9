package file

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abduss/filegate/internal/apperr"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/validation"
)

const maxExpiryMinutes = 7 * 24 * 60

// multipartOverhead bounds the form headers, boundaries and text fields sent
// alongside a single file.
const multipartOverhead = 64 << 10

// RegisterRoutes mounts file operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/upload/:category", handler.uploadFile)
	group.POST("/upload/multiple/:category", handler.uploadFiles)
	group.GET("/download/:category/:name", handler.downloadFile)
	group.GET("/stream/:category/:name", handler.streamFile)
	group.GET("/metadata/:category/:name", handler.fileMetadata)
	group.GET("/list/:category", handler.listFiles)
	group.GET("/exists/:category/:name", handler.fileExists)
	group.GET("/url/:category/:name", handler.fileURL)
	group.GET("/presigned-url/:category/:name", handler.presignedURL)
	group.GET("/pdf/thumbnail/:name", handler.pdfThumbnail)
	group.GET("/pdf/text/:name", handler.pdfText)
	group.DELETE("/:category/:name", handler.deleteFile)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	category := c.Param("category")
	d, ok := h.service.Registry().Lookup(category)
	if !ok {
		writeError(c, apperr.UnknownCategory(category))
		return
	}
	limit := filetype.MaxSize(d)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			size := c.Request.ContentLength
			if size <= limit {
				size = tooLarge.Limit + 1
			}
			writeError(c, apperr.SizeExceeded(size, limit))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	result, err := h.service.Upload(c.Request.Context(), category, validation.Submission{
		Filename: fileHeader.Filename,
		Name:     c.PostForm("customFileName"),
		Size:     fileHeader.Size,
		Body:     f,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *httpHandler) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form is required"})
		return
	}

	headers := form.File["files"]
	subs := make([]validation.Submission, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unreadable file %q", fh.Filename)})
			return
		}
		opened = append(opened, f)
		subs = append(subs, validation.Submission{Filename: fh.Filename, Size: fh.Size, Body: f})
	}

	results, err := h.service.UploadMany(c.Request.Context(), c.Param("category"), subs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"files": results})
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	h.serveFile(c, "attachment")
}

func (h *httpHandler) streamFile(c *gin.Context) {
	h.serveFile(c, "inline")
}

func (h *httpHandler) serveFile(c *gin.Context, disposition string) {
	reader, rec, err := h.service.Download(c.Request.Context(), c.Param("name"), c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	filename := rec.ObjectName
	if rec.OriginalName != nil {
		filename = *rec.OriginalName
	}
	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, rec.Size, contentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, filename),
		"ETag":                rec.ETag,
	})
}

func (h *httpHandler) fileMetadata(c *gin.Context) {
	rec, err := h.service.Metadata(c.Request.Context(), c.Param("name"), c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	list := []Record{}
	for rec, err := range h.service.List(c.Request.Context(), c.Param("category")) {
		if err != nil {
			writeError(c, err)
			return
		}
		list = append(list, rec)
	}
	c.JSON(http.StatusOK, gin.H{"files": list})
}

func (h *httpHandler) fileExists(c *gin.Context) {
	ok := h.service.Exists(c.Request.Context(), c.Param("name"), c.Param("category"))
	c.JSON(http.StatusOK, gin.H{"exists": ok})
}

func (h *httpHandler) fileURL(c *gin.Context) {
	url, err := h.service.FileURL(c.Param("name"), c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, url)
}

func (h *httpHandler) presignedURL(c *gin.Context) {
	var expiry time.Duration
	if raw := c.Query("expiryMinutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 || minutes > maxExpiryMinutes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiryMinutes"})
			return
		}
		expiry = time.Duration(minutes) * time.Minute
	}

	url, err := h.service.PresignedURL(c.Request.Context(), c.Param("name"), c.Param("category"), expiry)
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, url)
}

func (h *httpHandler) pdfThumbnail(c *gin.Context) {
	width, err := optionalInt(c, "width")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid width"})
		return
	}
	height, err := optionalInt(c, "height")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid height"})
		return
	}

	img, err := h.service.PDFThumbnail(c.Request.Context(), c.Param("name"), width, height)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (h *httpHandler) pdfText(c *gin.Context) {
	text, err := h.service.PDFText(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	if !h.service.Delete(c.Request.Context(), c.Param("name"), c.Param("category")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func optionalInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > 4096 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}
