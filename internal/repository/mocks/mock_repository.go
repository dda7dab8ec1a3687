package mocks

import (
	"context"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a new MockRepository instance.
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateThread mocks the CreateThread method.
func (m *MockRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	args := m.Called(ctx, thread)
	return args.Error(0)
}

// GetThread mocks the GetThread method.
func (m *MockRepository) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

// ListThreads mocks the ListThreads method.
func (m *MockRepository) ListThreads(ctx context.Context, resourceID string, limit, offset int) ([]*models.Thread, int, error) {
	args := m.Called(ctx, resourceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Thread), args.Int(1), args.Error(2)
}

func (m *MockRepository) TouchThread(ctx context.Context, id string, added int) error {
	args := m.Called(ctx, id, added)
	return args.Error(0)
}

func (m *MockRepository) DeleteThread(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CreateMessage mocks the CreateMessage method.
func (m *MockRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// GetMessagesByThreadID mocks the GetMessagesByThreadID method.
func (m *MockRepository) GetMessagesByThreadID(ctx context.Context, threadID string, limit, offset int) ([]*models.Message, error) {
	args := m.Called(ctx, threadID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockRepository) GetRecentMessages(ctx context.Context, threadID string, n int) ([]*models.Message, error) {
	args := m.Called(ctx, threadID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// SaveRun mocks the SaveRun method.
func (m *MockRepository) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// GetRun mocks the GetRun method.
func (m *MockRepository) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkflowRun), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRepository) ListRuns(ctx context.Context, workflowName string, limit, offset int) ([]*models.WorkflowRun, int, error) {
	args := m.Called(ctx, workflowName, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.WorkflowRun), args.Int(1), args.Error(2)
}

var _ repository.Repository = (*MockRepository)(nil)
