package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/agent"
	"docqa/src/core/docstore"
	"docqa/src/core/index"
	"docqa/src/core/ingest"
	"docqa/src/core/retrieval"
	"docqa/src/infrastructure/job"
)

type Handler struct {
	ingestService    *ingest.Service
	retrievalService *retrieval.Service
	documents        docstore.DocumentStore
	coordinator      *agent.Coordinator
	jobService       *job.JobService
}

func NewHandler(ingestService *ingest.Service, retrievalService *retrieval.Service, documents docstore.DocumentStore, coordinator *agent.Coordinator, jobService *job.JobService) *Handler {
	return &Handler{
		ingestService:    ingestService,
		retrievalService: retrievalService,
		documents:        documents,
		coordinator:      coordinator,
		jobService:       jobService,
	}
}

// RegisterRoutes registers all v1 API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Document routes
	v1.GET("/documents", h.ListDocuments)
	v1.POST("/documents", h.UploadDocument)

	// Index routes
	v1.POST("/index/rebuild", h.RebuildIndex)

	// Retrieval and question routes
	v1.POST("/search", h.Search)
	v1.POST("/questions", h.AskQuestion)

	// Job routes
	v1.POST("/jobs/ingest", h.EnqueueIngestJob)
	v1.GET("/jobs/:id", h.GetJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, docstore.ErrDocumentNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, ingest.ErrNoFiles):
		code = "NO_FILES"
		status = http.StatusBadRequest
	case errors.Is(err, index.ErrNotBuilt):
		code = "INDEX_NOT_BUILT"
		status = http.StatusConflict
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
