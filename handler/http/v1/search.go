package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type rebuildResponse struct {
	IndexSize int `json:"index_size"`
}

// RebuildIndex godoc
// @Summary Re-encode all stored chunks and rebuild the vector index
// @Tags index
// @Produce json
// @Success 200 {object} rebuildResponse
// @Failure 500 {object} ErrorResponse
// @Router /index/rebuild [post]
func (h *Handler) RebuildIndex(c *gin.Context) {
	size, err := h.retrievalService.BuildIndex(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, rebuildResponse{IndexSize: size})
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// Search godoc
// @Summary Retrieve the chunks most relevant to a query
// @Tags search
// @Accept json
// @Produce json
// @Success 200 {array} retrieval.ContextChunk
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /search [post]
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	chunks, err := h.retrievalService.Retrieve(c.Request.Context(), req.Query, req.K)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, chunks)
}
