package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadFile handles POST /v1/upload.
// It stores the file and returns its relative URL for use as payment_proof or proof_image.
func (h *Handlers) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	url, err := h.Uploads.Save(file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
