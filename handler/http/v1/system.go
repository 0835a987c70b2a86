package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthStatus struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	IndexSize int    `json:"index_size"`
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} healthStatus
// @Failure 500 {object} ErrorResponse
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, healthStatus{
		Status:    "ok",
		Documents: len(docs),
		IndexSize: h.retrievalService.IndexSize(),
	})
}
