package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDocuments godoc
// @Summary List ingested documents
// @Tags documents
// @Produce json
// @Success 200 {array} docstore.Document
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, docs)
}

type uploadResponse struct {
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
}

// UploadDocument godoc
// @Summary Upload a document and split it into retrievable chunks
// @Tags documents
// @Accept multipart/form-data
// @Param file formData file true "Document file"
// @Produce json
// @Success 201 {object} uploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err))
		return
	}

	created, err := h.ingestService.IngestPayload(c.Request.Context(), header.Filename, data)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusCreated, uploadResponse{
		Filename:      header.Filename,
		ChunksCreated: created,
	})
}
