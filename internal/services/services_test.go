package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func llmConfig(baseURL string) *config.LLMConfig {
	return &config.LLMConfig{
		BaseURL:        baseURL + "/v1/",
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		MaxRetries:     0,
		Timeout:        5 * time.Second,
	}
}

func chunk(content, finish string) string {
	finishJSON := "null"
	if finish != "" {
		finishJSON = fmt.Sprintf("%q", finish)
	}
	return fmt.Sprintf(`data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":%s}]}`+"\n\n", content, finishJSON)
}

func TestLLMClient_Stream(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, chunk("こんにちは", ""))
			io.WriteString(w, chunk("、世界", ""))
			io.WriteString(w, chunk("", "stop"))
			io.WriteString(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`+"\n\n")
			io.WriteString(w, "data: [DONE]\n\n")
		}))
		defer srv.Close()

		client := services.NewLLMClient(llmConfig(srv.URL))
		var deltas []string

		completion, err := client.Stream(context.Background(), []models.ChatMessage{
			{Role: models.RoleSystem, Content: "be brief"},
			{Role: models.RoleUser, Content: "hi"},
		}, func(text string) error {
			deltas = append(deltas, text)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"こんにちは", "、世界"}, deltas)
		assert.Equal(t, "こんにちは、世界", completion.Text)
		assert.Equal(t, "stop", completion.FinishReason)
		assert.Equal(t, models.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}, completion.Usage)

		assert.Equal(t, "gpt-4o-mini", received["model"])
		assert.Equal(t, true, received["stream"])
		messages := received["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	})

	t.Run("CallbackErrorStopsStream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, chunk("a", ""))
			io.WriteString(w, chunk("b", ""))
			io.WriteString(w, "data: [DONE]\n\n")
		}))
		defer srv.Close()

		stop := errors.New("client went away")
		calls := 0
		_, err := services.NewLLMClient(llmConfig(srv.URL)).Stream(context.Background(),
			[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
			func(string) error {
				calls++
				return stop
			})

		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("UpstreamError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
		}))
		defer srv.Close()

		_, err := services.NewLLMClient(llmConfig(srv.URL)).Stream(context.Background(),
			[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
			func(string) error { return nil })

		assert.Error(t, err)
	})
}

func TestLLMClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"晴れです"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer srv.Close()

	completion, err := services.NewLLMClient(llmConfig(srv.URL)).Generate(context.Background(),
		[]models.ChatMessage{{Role: models.RoleUser, Content: "天気は？"}})

	require.NoError(t, err)
	assert.Equal(t, "晴れです", completion.Text)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, int64(7), completion.Usage.TotalTokens)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		assert.Equal(t, "remember me", body["input"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}],
			"model":"text-embedding-3-small","usage":{"prompt_tokens":2,"total_tokens":2}}`)
	}))
	defer srv.Close()

	vec, err := services.NewOpenAIEmbedder(llmConfig(srv.URL)).Embed(context.Background(), "remember me")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
}

func TestS3Client(t *testing.T) {
	t.Run("ArchiveKey", func(t *testing.T) {
		assert.Equal(t, "runs/abc.json", services.ArchiveKey("runs/", "abc"))
		assert.Equal(t, "abc.json", services.ArchiveKey("", "abc"))
	})

	t.Run("GeneratePresignedDownloadURL_Success", func(t *testing.T) {
		client, err := services.NewS3Client(context.Background(), &config.S3Config{
			Region:    "us-east-1",
			Endpoint:  "http://localhost:9000",
			Bucket:    "archive",
			AccessKey: "minio",
			SecretKey: "minio123",
			Prefix:    "runs/",
		})
		require.NoError(t, err)

		url, err := client.GeneratePresignedDownloadURL(context.Background(), "runs/abc.json", 15*time.Minute)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/archive/runs/abc.json?"), url)
		assert.Contains(t, url, "X-Amz-Expires=900")
		assert.Contains(t, url, "X-Amz-Signature=")
	})

	t.Run("ArchiveRun_Success", func(t *testing.T) {
		var gotPath, gotMethod, gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotMethod, gotType = r.URL.Path, r.Method, r.Header.Get("Content-Type")
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := services.NewS3Client(context.Background(), &config.S3Config{
			Region:    "us-east-1",
			Endpoint:  srv.URL,
			Bucket:    "archive",
			AccessKey: "minio",
			SecretKey: "minio123",
			Prefix:    "runs/",
		})
		require.NoError(t, err)

		key, err := client.ArchiveRun(context.Background(), &models.WorkflowRun{
			ID:           "run-1",
			WorkflowName: "testWorkflow",
			Status:       models.RunStatusSuccess,
			Result:       map[string]any{"finalResult": "done"},
		})

		require.NoError(t, err)
		assert.Equal(t, "runs/run-1.json", key)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "/archive/runs/run-1.json", gotPath)
		assert.Equal(t, "application/json", gotType)
	})
}
