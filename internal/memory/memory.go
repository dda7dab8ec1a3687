// Package memory gives agents conversation threads: recent history, semantic
// recall of older messages and persistence of new turns.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrThreadNotFound = errors.New("thread not found")

const titleLength = 50

type Store interface {
	repository.ThreadRepository
	repository.MessageRepository
}

type VectorStore interface {
	UpsertMessage(ctx context.Context, msg models.Message, vector []float32) error
	SearchThread(ctx context.Context, threadID string, vector []float32, topK int) ([]models.Message, error)
	DeleteThreadVectors(ctx context.Context, threadID string) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Memory struct {
	store    Store
	vectors  VectorStore
	embedder Embedder
	lastN    int
	topK     int
	logger   zerolog.Logger
}

type Option func(*Memory)

// WithSemanticRecall adds the topK most similar earlier messages to every
// recall.
func WithSemanticRecall(vectors VectorStore, embedder Embedder, topK int) Option {
	return func(m *Memory) {
		m.vectors = vectors
		m.embedder = embedder
		m.topK = topK
	}
}

func New(store Store, lastN int, logger zerolog.Logger, opts ...Option) *Memory {
	m := &Memory{store: store, lastN: lastN, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) semantic() bool {
	return m.vectors != nil && m.embedder != nil && m.topK > 0
}

// Recall returns the context to put in front of a new turn: a system note
// with semantically related older messages, if any, followed by the last
// messages of the thread in order. Vector search failures are logged and
// skipped.
func (m *Memory) Recall(ctx context.Context, threadID, query string) ([]models.ChatMessage, error) {
	var recent []*models.Message
	if m.lastN > 0 {
		var err error
		recent, err = m.store.GetRecentMessages(ctx, threadID, m.lastN)
		if err != nil {
			return nil, fmt.Errorf("failed to load recent messages: %w", err)
		}
	}

	history := make([]models.ChatMessage, 0, len(recent)+1)
	if related := m.related(ctx, threadID, query, recent); len(related) > 0 {
		var b strings.Builder
		b.WriteString("Relevant messages from earlier in this conversation:")
		for _, msg := range related {
			fmt.Fprintf(&b, "\n- %s: %s", msg.Role, msg.Content)
		}
		history = append(history, models.ChatMessage{Role: models.RoleSystem, Content: b.String()})
	}

	for _, msg := range recent {
		history = append(history, models.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

func (m *Memory) related(ctx context.Context, threadID, query string, recent []*models.Message) []models.Message {
	if !m.semantic() || query == "" {
		return nil
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warn().Err(err).Str("thread_id", threadID).Msg("Semantic recall skipped: embedding failed")
		return nil
	}

	hits, err := m.vectors.SearchThread(ctx, threadID, vec, m.topK)
	if err != nil {
		m.logger.Warn().Err(err).Str("thread_id", threadID).Msg("Semantic recall skipped: search failed")
		return nil
	}

	seen := make(map[string]bool, len(recent))
	for _, msg := range recent {
		seen[msg.ID] = true
	}

	related := make([]models.Message, 0, len(hits))
	for _, hit := range hits {
		if !seen[hit.ID] {
			related = append(related, hit)
		}
	}
	return related
}

// Remember appends messages to the thread, creating it on first use.
func (m *Memory) Remember(ctx context.Context, threadID, resourceID string, messages ...models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	thread, err := m.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}

	now := time.Now()
	if thread == nil {
		thread = &models.Thread{
			ID:         threadID,
			ResourceID: resourceID,
			Title:      title(messages),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := m.store.CreateThread(ctx, thread); err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
	}

	for i, cm := range messages {
		msg := models.Message{
			ID:        uuid.New().String(),
			ThreadID:  threadID,
			Role:      cm.Role,
			Content:   cm.Content,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
		if err := m.store.CreateMessage(ctx, &msg); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		m.index(ctx, msg)
	}

	if err := m.store.TouchThread(ctx, threadID, len(messages)); err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}
	return nil
}

func (m *Memory) index(ctx context.Context, msg models.Message) {
	if !m.semantic() || strings.TrimSpace(msg.Content) == "" {
		return
	}

	vec, err := m.embedder.Embed(ctx, msg.Content)
	if err == nil {
		err = m.vectors.UpsertMessage(ctx, msg, vec)
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to index message for recall")
	}
}

func (m *Memory) ListThreads(ctx context.Context, resourceID string, limit, offset int) ([]*models.Thread, int, error) {
	return m.store.ListThreads(ctx, resourceID, limit, offset)
}

func (m *Memory) Messages(ctx context.Context, threadID string, limit, offset int) ([]*models.Message, error) {
	if err := m.mustExist(ctx, threadID); err != nil {
		return nil, err
	}
	return m.store.GetMessagesByThreadID(ctx, threadID, limit, offset)
}

// Forget deletes a thread, its messages and its recall vectors.
func (m *Memory) Forget(ctx context.Context, threadID string) error {
	if err := m.mustExist(ctx, threadID); err != nil {
		return err
	}
	if err := m.store.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if m.vectors != nil {
		if err := m.vectors.DeleteThreadVectors(ctx, threadID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) mustExist(ctx context.Context, threadID string) error {
	thread, err := m.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	if thread == nil {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	return nil
}

// title is the first user message, cut to titleLength runes.
func title(messages []models.ChatMessage) string {
	for _, msg := range messages {
		if msg.Role != models.RoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Content)
		if utf8.RuneCountInString(text) <= titleLength {
			return text
		}
		return string([]rune(text)[:titleLength]) + "…"
	}
	return ""
}
