package controllers

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const DefaultMaxUploadBytes int64 = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadController struct {
	Dir        string
	PublicPath string
	MaxBytes   int64
}

// UploadImage stores one image from the "file" form field and returns its URL
func (uc *UploadController) UploadImage(c *gin.Context) {
	maxBytes := uc.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "An image file is required")
		return
	}
	if header.Size > maxBytes {
		utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "Image exceeds the 5 MB limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Unreadable file")
		return
	}
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	file.Close()

	contentType := http.DetectContentType(sniff[:n])
	ext, ok := imageExtensions[contentType]
	if !ok {
		utils.RespondWithError(c, http.StatusUnsupportedMediaType, "Only JPEG, PNG and WebP images are accepted")
		return
	}

	if err := os.MkdirAll(uc.Dir, 0o755); err != nil {
		logger.L().Error("upload dir unavailable", map[string]interface{}{"dir": uc.Dir, "error": err})
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store image")
		return
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(header, filepath.Join(uc.Dir, name)); err != nil {
		logger.L().Error("saving upload failed", map[string]interface{}{"error": err})
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store image")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":         path.Join("/", strings.Trim(uc.PublicPath, "/"), name),
		"contentType": contentType,
		"size":        header.Size,
	})
}
