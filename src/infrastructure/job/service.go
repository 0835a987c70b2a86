package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"docqa/src/core/ingest"
	"docqa/src/core/retrieval"
)

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	ingester  *ingest.Service
	retriever *retrieval.Service
}

type JobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// IngestPayload asks the worker to ingest the given files. RebuildIndex
// additionally refreshes the vector index once ingestion finishes.
type IngestPayload struct {
	FileRefs     []string `json:"file_refs"`
	RebuildIndex bool     `json:"rebuild_index"`
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	ingester *ingest.Service,
	retriever *retrieval.Service,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		ingester:  ingester,
		retriever: retriever,
	}
}

// EnqueueJob creates a new job and publishes it to the message queue
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}

	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(JobsTopic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// GetJob looks up a job record by ID. A missing job returns nil, nil.
func (s *JobService) GetJob(ctx context.Context, id int) (*Job, error) {
	return s.repo.Get(ctx, id)
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	err = s.processJob(ctx, job)

	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

// processJob handles different types of jobs
func (s *JobService) processJob(ctx context.Context, job *Job) error {
	switch job.TaskType {
	case TaskTypeIngest:
		return s.handleIngestTask(ctx, job)
	default:
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}

func (s *JobService) handleIngestTask(ctx context.Context, job *Job) error {
	var payload IngestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}

	result, err := s.ingester.IngestFiles(ctx, payload.FileRefs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	s.logger.Info("Ingest job executed", watermill.LogFields{
		"job_id":    job.ID,
		"documents": result.DocumentsIngested,
		"chunks":    result.ChunksCreated,
		"skipped":   len(result.Skipped),
	})

	if payload.RebuildIndex {
		size, err := s.retriever.BuildIndex(ctx)
		if err != nil {
			return fmt.Errorf("index rebuild failed: %w", err)
		}
		s.logger.Info("Index rebuilt", watermill.LogFields{
			"job_id": job.ID,
			"size":   size,
		})
	}

	return nil
}
