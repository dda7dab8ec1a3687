package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"agent-relay-gateway/internal/models"
)

// MemoryRepository keeps threads, messages and runs in process memory. It is
// used when no database is configured; everything is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	threads  map[string]models.Thread
	messages map[string][]models.Message
	runs     map[string]models.WorkflowRun
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		threads:  make(map[string]models.Thread),
		messages: make(map[string][]models.Message),
		runs:     make(map[string]models.WorkflowRun),
	}
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[thread.ID] = *thread
	return nil
}

func (r *MemoryRepository) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	thread, ok := r.threads[id]
	if !ok {
		return nil, nil
	}
	return &thread, nil
}

func (r *MemoryRepository) ListThreads(ctx context.Context, resourceID string, limit, offset int) ([]*models.Thread, int, error) {
	r.mu.RLock()
	var matched []*models.Thread
	for _, t := range r.threads {
		if resourceID == "" || t.ResourceID == resourceID {
			t := t
			matched = append(matched, &t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return page(matched, limit, offset), len(matched), nil
}

func (r *MemoryRepository) TouchThread(ctx context.Context, id string, added int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	thread, ok := r.threads[id]
	if !ok {
		return nil
	}
	thread.MessageCount += added
	thread.UpdatedAt = time.Now()
	r.threads[id] = thread
	return nil
}

func (r *MemoryRepository) DeleteThread(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, id)
	delete(r.messages, id)
	return nil
}

func (r *MemoryRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append(r.messages[msg.ThreadID], *msg)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	r.messages[msg.ThreadID] = msgs
	return nil
}

func (r *MemoryRepository) GetMessagesByThreadID(ctx context.Context, threadID string, limit, offset int) ([]*models.Message, error) {
	return page(r.threadMessages(threadID), limit, offset), nil
}

func (r *MemoryRepository) GetRecentMessages(ctx context.Context, threadID string, n int) ([]*models.Message, error) {
	msgs := r.threadMessages(threadID)
	if n >= 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

func (r *MemoryRepository) threadMessages(threadID string) []*models.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[threadID]
	out := make([]*models.Message, len(stored))
	for i := range stored {
		msg := stored[i]
		out[i] = &msg
	}
	return out
}

func (r *MemoryRepository) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.runs[run.ID]; ok && run.CreatedAt.IsZero() {
		run.CreatedAt = existing.CreatedAt
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRepository) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *MemoryRepository) ListRuns(ctx context.Context, workflowName string, limit, offset int) ([]*models.WorkflowRun, int, error) {
	r.mu.RLock()
	var matched []*models.WorkflowRun
	for _, run := range r.runs {
		if workflowName == "" || run.WorkflowName == workflowName {
			run := run
			matched = append(matched, &run)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, limit, offset), len(matched), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
