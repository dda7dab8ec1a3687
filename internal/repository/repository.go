package repository

import (
	"context"

	"agent-relay-gateway/internal/models"
)

// Lookups return (nil, nil) when the record does not exist.

type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	ListThreads(ctx context.Context, resourceID string, limit, offset int) ([]*models.Thread, int, error)
	// TouchThread bumps updated_at and adds added to the message count.
	TouchThread(ctx context.Context, id string, added int) error
	// DeleteThread removes the thread together with its messages.
	DeleteThread(ctx context.Context, id string) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessagesByThreadID(ctx context.Context, threadID string, limit, offset int) ([]*models.Message, error)
	// GetRecentMessages returns the last n messages of a thread, oldest first.
	GetRecentMessages(ctx context.Context, threadID string, n int) ([]*models.Message, error)
}

type RunRepository interface {
	// SaveRun inserts the run or replaces the stored record with the same ID.
	SaveRun(ctx context.Context, run *models.WorkflowRun) error
	GetRun(ctx context.Context, id string) (*models.WorkflowRun, error)
	ListRuns(ctx context.Context, workflowName string, limit, offset int) ([]*models.WorkflowRun, int, error)
}

type Repository interface {
	ThreadRepository
	MessageRepository
	RunRepository
	Ping(ctx context.Context) error
}
