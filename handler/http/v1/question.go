package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/agent"
)

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskQuestion godoc
// @Summary Answer a question from the indexed documents
// @Tags questions
// @Accept json
// @Produce json
// @Success 200 {object} agent.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /questions [post]
func (h *Handler) AskQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	answer, err := h.coordinator.Answer(c.Request.Context(), req.Question)
	if err != nil {
		var failed *agent.SessionFailedError
		if errors.As(err, &failed) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Code:    "SESSION_FAILED",
				Message: failed.Error(),
				Details: gin.H{"sources": failed.Sources},
			})
			return
		}
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, answer)
}
