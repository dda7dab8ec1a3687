package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"

	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(cfg *config.DatabaseConfig) (*PostgresRepository, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// DB exposes the pool for schema setup in tests.
func (r *PostgresRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const threadColumns = "id, resource_id, title, created_at, updated_at, message_count"

type threadRow struct {
	ID           string
	ResourceID   sql.NullString
	Title        sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

func (row *threadRow) fields() []any {
	return []any{&row.ID, &row.ResourceID, &row.Title, &row.CreatedAt, &row.UpdatedAt, &row.MessageCount}
}

func (row *threadRow) thread() *models.Thread {
	return &models.Thread{
		ID:           row.ID,
		ResourceID:   row.ResourceID.String,
		Title:        row.Title.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		MessageCount: row.MessageCount,
	}
}

func (r *PostgresRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	query := `
		INSERT INTO threads (id, resource_id, title, created_at, updated_at, message_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		thread.ID, nullString(thread.ResourceID), nullString(thread.Title),
		thread.CreatedAt, thread.UpdatedAt, thread.MessageCount,
	)
	return err
}

func (r *PostgresRepository) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	query := "SELECT " + threadColumns + " FROM threads WHERE id = $1"

	var row threadRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(row.fields()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.thread(), nil
}

func (r *PostgresRepository) ListThreads(ctx context.Context, resourceID string, limit, offset int) ([]*models.Thread, int, error) {
	where := ""
	var args []any
	if resourceID != "" {
		args = append(args, resourceID)
		where = " WHERE resource_id = $1"
	}

	query := fmt.Sprintf("SELECT %s FROM threads%s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d",
		threadColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		var row threadRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, 0, err
		}
		threads = append(threads, row.thread())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM threads"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return threads, total, nil
}

func (r *PostgresRepository) TouchThread(ctx context.Context, id string, added int) error {
	query := `
		UPDATE threads
		SET message_count = message_count + $1, updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, added, time.Now(), id)
	return err
}

func (r *PostgresRepository) DeleteThread(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE thread_id = $1", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE id = $1", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, thread_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.ThreadID, msg.Role, msg.Content, msg.CreatedAt)
	return err
}

func (r *PostgresRepository) GetMessagesByThreadID(ctx context.Context, threadID string, limit, offset int) ([]*models.Message, error) {
	query := `
		SELECT id, thread_id, role, content, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	return r.queryMessages(ctx, query, threadID, limit, offset)
}

func (r *PostgresRepository) GetRecentMessages(ctx context.Context, threadID string, n int) ([]*models.Message, error) {
	query := `
		SELECT id, thread_id, role, content, created_at FROM (
			SELECT id, thread_id, role, content, created_at
			FROM messages
			WHERE thread_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	return r.queryMessages(ctx, query, threadID, n)
}

func (r *PostgresRepository) queryMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

const runColumns = "id, workflow_name, status, input, result, error_message, archive_key, created_at, finished_at"

type runRow struct {
	ID           string
	WorkflowName string
	Status       string
	Input        []byte
	Result       []byte
	ErrorMessage sql.NullString
	ArchiveKey   sql.NullString
	CreatedAt    time.Time
	FinishedAt   sql.NullTime
}

func (row *runRow) fields() []any {
	return []any{
		&row.ID, &row.WorkflowName, &row.Status, &row.Input, &row.Result,
		&row.ErrorMessage, &row.ArchiveKey, &row.CreatedAt, &row.FinishedAt,
	}
}

func (row *runRow) run() (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{
		ID:           row.ID,
		WorkflowName: row.WorkflowName,
		Status:       row.Status,
		ErrorMessage: row.ErrorMessage.String,
		ArchiveKey:   row.ArchiveKey.String,
		CreatedAt:    row.CreatedAt,
	}
	if row.FinishedAt.Valid {
		finished := row.FinishedAt.Time
		run.FinishedAt = &finished
	}
	if err := unmarshalJSON(row.Input, &run.Input); err != nil {
		return nil, fmt.Errorf("run %s input: %w", row.ID, err)
	}
	if err := unmarshalJSON(row.Result, &run.Result); err != nil {
		return nil, fmt.Errorf("run %s result: %w", row.ID, err)
	}
	return run, nil
}

func (r *PostgresRepository) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	input, err := marshalJSON(run.Input)
	if err != nil {
		return err
	}
	result, err := marshalJSON(run.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message,
			archive_key = EXCLUDED.archive_key,
			finished_at = EXCLUDED.finished_at
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.WorkflowName, run.Status, input, result,
		nullString(run.ErrorMessage), nullString(run.ArchiveKey),
		run.CreatedAt, run.FinishedAt,
	)
	return err
}

func (r *PostgresRepository) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := "SELECT " + runColumns + " FROM workflow_runs WHERE id = $1"

	var row runRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(row.fields()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.run()
}

func (r *PostgresRepository) ListRuns(ctx context.Context, workflowName string, limit, offset int) ([]*models.WorkflowRun, int, error) {
	where := ""
	var args []any
	if workflowName != "" {
		args = append(args, workflowName)
		where = " WHERE workflow_name = $1"
	}

	query := fmt.Sprintf("SELECT %s FROM workflow_runs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		runColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*models.WorkflowRun
	for rows.Next() {
		var row runRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, 0, err
		}
		run, err := row.run()
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v *map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
