package mocks

import (
	"context"
	"time"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockS3Client is a mock implementation of S3ClientInterface.
type MockS3Client struct {
	mock.Mock
}

func NewMockS3Client() *MockS3Client {
	return &MockS3Client{}
}

func (m *MockS3Client) ArchiveRun(ctx context.Context, run *models.WorkflowRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func (m *MockS3Client) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}

func (m *MockS3Client) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTemporalClient is a mock implementation of TemporalClientInterface.
type MockTemporalClient struct {
	mock.Mock
}

func NewMockTemporalClient() *MockTemporalClient {
	return &MockTemporalClient{}
}

func (m *MockTemporalClient) Close() {
	m.Called()
}

func (m *MockTemporalClient) StartWorkflowRun(ctx context.Context, in models.DurableRunInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockTemporalClient) QueryWorkflowStatus(ctx context.Context, workflowID string) (string, error) {
	args := m.Called(ctx, workflowID)
	return args.String(0), args.Error(1)
}

func (m *MockTemporalClient) CancelWorkflow(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)
	return args.Error(0)
}

func (m *MockTemporalClient) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockQdrantClient is a mock implementation of QdrantClientInterface.
type MockQdrantClient struct {
	mock.Mock
}

func NewMockQdrantClient() *MockQdrantClient {
	return &MockQdrantClient{}
}

func (m *MockQdrantClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockQdrantClient) UpsertMessage(ctx context.Context, msg models.Message, vector []float32) error {
	args := m.Called(ctx, msg, vector)
	return args.Error(0)
}

func (m *MockQdrantClient) SearchThread(ctx context.Context, threadID string, vector []float32, topK int) ([]models.Message, error) {
	args := m.Called(ctx, threadID, vector, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockQdrantClient) DeleteThreadVectors(ctx context.Context, threadID string) error {
	args := m.Called(ctx, threadID)
	return args.Error(0)
}

func (m *MockQdrantClient) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of EmbedderInterface.
type MockEmbedder struct {
	mock.Mock
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockChatModel is a mock implementation of agent.ChatModel. Stream replays
// the deltas given to SetDeltas before returning the mocked completion.
type MockChatModel struct {
	mock.Mock
	deltas []string
}

func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

func (m *MockChatModel) SetDeltas(deltas ...string) {
	m.deltas = deltas
}

func (m *MockChatModel) Generate(ctx context.Context, messages []models.ChatMessage) (*agent.Completion, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Completion), args.Error(1)
}

func (m *MockChatModel) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(text string) error) (*agent.Completion, error) {
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
	}
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Completion), args.Error(1)
}
