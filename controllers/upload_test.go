package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	dir := t.TempDir()
	uc := &UploadController{Dir: dir, PublicPath: "uploads/", MaxBytes: 1024}
	r := gin.New()
	r.POST("/api/upload/image", uc.UploadImage)

	w := serve(r, uploadRequest(t, "file", "photo.png", pngHeader))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		URL         string `json:"url"`
		ContentType string `json:"contentType"`
		Size        int64  `json:"size"`
	}
	decode(t, w, &body)
	assert.Equal(t, "image/png", body.ContentType)
	assert.Equal(t, int64(len(pngHeader)), body.Size)
	assert.True(t, strings.HasPrefix(body.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(body.URL, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, filepath.Base(body.URL)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	tests := []struct {
		name     string
		field    string
		content  []byte
		wantCode int
	}{
		{"not an image", "file", []byte("hello, this is plain text"), http.StatusUnsupportedMediaType},
		{"too large", "file", append(append([]byte{}, pngHeader...), make([]byte, 2048)...), http.StatusRequestEntityTooLarge},
		{"wrong field", "image", pngHeader, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, uploadRequest(t, tt.field, "upload.bin", tt.content))
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
