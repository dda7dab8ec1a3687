package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/repository"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectRoot walks up from the package directory to the one holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above test directory")
		}
		dir = parent
	}
}

// setupIntegration connects to the database named by DB_HOST (environment or
// the project .env) and applies schema.sql, or skips the test.
func setupIntegration(t *testing.T) *repository.PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := projectRoot(t)
	_ = godotenv.Load(filepath.Join(root, ".env"))

	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	repo, err := repository.NewPostgresRepository(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}

	schema, err := os.ReadFile(filepath.Join(root, "schema.sql"))
	require.NoError(t, err)
	_, err = repo.DB().Exec(string(schema))
	require.NoError(t, err, "Failed to initialize database schema")

	return repo
}

func TestPostgresRepository_Integration_ThreadsAndMessages(t *testing.T) {
	repo := setupIntegration(t)
	defer repo.Close()
	ctx := context.Background()

	threadID := uuid.New().String()
	now := time.Now().Truncate(time.Microsecond)
	thread := &models.Thread{
		ID:         threadID,
		ResourceID: "integration-user",
		Title:      "integration",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	defer repo.DeleteThread(ctx, threadID)

	require.NoError(t, repo.CreateThread(ctx, thread))

	for i, content := range []string{"hello", "hi there", "how are you?"} {
		require.NoError(t, repo.CreateMessage(ctx, &models.Message{
			ID:        uuid.New().String(),
			ThreadID:  threadID,
			Role:      models.RoleUser,
			Content:   content,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	require.NoError(t, repo.TouchThread(ctx, threadID, 3))

	fetched, err := repo.GetThread(ctx, threadID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, 3, fetched.MessageCount)
	assert.Equal(t, "integration-user", fetched.ResourceID)

	recent, err := repo.GetRecentMessages(ctx, threadID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "hi there", recent[0].Content)
	assert.Equal(t, "how are you?", recent[1].Content)

	threads, total, err := repo.ListThreads(ctx, "integration-user", 10, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	found := false
	for _, th := range threads {
		if th.ID == threadID {
			found = true
			break
		}
	}
	assert.True(t, found, "Created thread should appear in list")

	require.NoError(t, repo.DeleteThread(ctx, threadID))
	msgs, err := repo.GetMessagesByThreadID(ctx, threadID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostgresRepository_Integration_Runs(t *testing.T) {
	repo := setupIntegration(t)
	defer repo.Close()
	ctx := context.Background()

	runID := uuid.New().String()
	run := &models.WorkflowRun{
		ID:           runID,
		WorkflowName: "testWorkflow",
		Status:       models.RunStatusRunning,
		Input:        map[string]any{"value": "integration"},
		CreatedAt:    time.Now().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	finished := time.Now().Truncate(time.Microsecond)
	run.Status = models.RunStatusSuccess
	run.Result = map[string]any{"finalResult": "Step1: integration -> Step2完了"}
	run.FinishedAt = &finished
	require.NoError(t, repo.SaveRun(ctx, run))

	fetched, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, models.RunStatusSuccess, fetched.Status)
	assert.Equal(t, "integration", fetched.Input["value"])
	assert.Equal(t, run.Result["finalResult"], fetched.Result["finalResult"])
	require.NotNil(t, fetched.FinishedAt)

	runs, total, err := repo.ListRuns(ctx, "testWorkflow", 50, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, runs)
}
