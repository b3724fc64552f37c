package controllers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

const maxUploadBytes = 5 << 20

type UploadController struct {
	disk storage.Disk
}

func NewUploadController(disk storage.Disk) *UploadController {
	return &UploadController{disk: disk}
}

// Store accepts a multipart "file" image and returns its public URL.
func (h *UploadController) Store(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxUploadBytes+1024)
	file, header, err := c.R.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.Error(http.StatusRequestEntityTooLarge, "File exceeds 5 MB")
			return
		}
		c.ValidationError(map[string]string{"file": "The file field is required."})
		return
	}
	defer file.Close()

	contentType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	url, err := storage.SaveImage(c.Context(), h.disk, header.Filename, contentType, file)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]string{"url": url})
}
