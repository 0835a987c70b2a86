package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docqa/src/infrastructure/job"
)

type ingestJobRequest struct {
	FileRefs     []string `json:"file_refs" binding:"required"`
	RebuildIndex bool     `json:"rebuild_index"`
}

// EnqueueIngestJob godoc
// @Summary Enqueue an asynchronous ingestion job
// @Tags jobs
// @Accept json
// @Produce json
// @Success 202 {object} job.Job
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/ingest [post]
func (h *Handler) EnqueueIngestJob(c *gin.Context) {
	if h.jobService == nil {
		sendError(c, http.StatusInternalServerError, errors.New("job queue is not configured"))
		return
	}

	var req ingestJobRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FileRefs) == 0 {
		sendError(c, http.StatusBadRequest, errors.New("file_refs is required"))
		return
	}

	payload, err := json.Marshal(job.IngestPayload{
		FileRefs:     req.FileRefs,
		RebuildIndex: req.RebuildIndex,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	j, err := h.jobService.EnqueueJob(c.Request.Context(), job.TaskTypeIngest, payload)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, j)
}

// GetJob godoc
// @Summary Get the status of a background job
// @Tags jobs
// @Param id path int true "Job ID"
// @Produce json
// @Success 200 {object} job.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	if h.jobService == nil {
		sendError(c, http.StatusInternalServerError, errors.New("job queue is not configured"))
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, errors.New("job id must be an integer"))
		return
	}

	j, err := h.jobService.GetJob(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "job not found",
		})
		return
	}

	sendJSON(c, http.StatusOK, j)
}
