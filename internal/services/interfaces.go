package services

import (
	"context"
	"time"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/models"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks agent-relay-gateway/internal/services S3ClientInterface,TemporalClientInterface,QdrantClientInterface,EmbedderInterface

// S3ClientInterface defines the interface for run archive operations.
type S3ClientInterface interface {
	// ArchiveRun uploads the run record as JSON and returns its object key.
	ArchiveRun(ctx context.Context, run *models.WorkflowRun) (string, error)

	// GeneratePresignedDownloadURL generates a presigned URL for downloading an object.
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// HealthCheck checks that the bucket is reachable.
	HealthCheck(ctx context.Context) error
}

// TemporalClientInterface defines the interface for durable workflow runs.
type TemporalClientInterface interface {
	// Close closes the Temporal client connection.
	Close()

	// StartWorkflowRun starts a registered workflow on a worker.
	StartWorkflowRun(ctx context.Context, in models.DurableRunInput) (string, error)

	// QueryWorkflowStatus queries the status of a workflow.
	QueryWorkflowStatus(ctx context.Context, workflowID string) (string, error)

	// CancelWorkflow cancels a workflow.
	CancelWorkflow(ctx context.Context, workflowID string) error

	// HealthCheck checks the health of the Temporal service.
	HealthCheck(ctx context.Context) error
}

// QdrantClientInterface defines the interface for semantic recall storage.
type QdrantClientInterface interface {
	// Close closes the Qdrant client connection.
	Close() error

	// UpsertMessage stores the embedding of a thread message.
	UpsertMessage(ctx context.Context, msg models.Message, vector []float32) error

	// SearchThread returns the messages of a thread nearest to vector.
	SearchThread(ctx context.Context, threadID string, vector []float32, topK int) ([]models.Message, error)

	// DeleteThreadVectors deletes all vectors associated with a thread.
	DeleteThreadVectors(ctx context.Context, threadID string) error

	// HealthCheck checks the health of the Qdrant service.
	HealthCheck(ctx context.Context) error
}

// EmbedderInterface turns text into a vector.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var (
	_ S3ClientInterface       = (*S3Client)(nil)
	_ TemporalClientInterface = (*TemporalClient)(nil)
	_ QdrantClientInterface   = (*QdrantClient)(nil)
	_ EmbedderInterface       = (*OpenAIEmbedder)(nil)
	_ agent.ChatModel         = (*LLMClient)(nil)
)
