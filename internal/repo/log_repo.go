package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/attendance-bridge/internal/domain"
)

// LogRepo — репозиторий журнала операций.
type LogRepo struct {
	pool *pgxpool.Pool
}

// NewLogRepo создаёт новый LogRepo.
func NewLogRepo(pool *pgxpool.Pool) *LogRepo {
	return &LogRepo{pool: pool}
}

// Create сохраняет новую журнальную запись.
// Payload == nil пишется как NULL (сообщение не распарсилось).
func (r *LogRepo) Create(ctx context.Context, e *domain.LogEntry) error {
	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bridge_log (id, queue_name, payload, operation, model_name,
		                        record_id, status, error, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.QueueName,
		payloadJSON,
		e.Operation,
		e.ModelName,
		e.RecordID,
		e.Status,
		nullString(e.Error),
		e.CreatedAt,
		e.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// GetByID возвращает журнальную запись по ID.
func (r *LogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	query := `
		SELECT id, queue_name, payload, operation, model_name,
		       record_id, status, error, created_at, processed_at
		FROM bridge_log
		WHERE id = $1
	`
	return r.scanEntry(r.pool.QueryRow(ctx, query, id))
}

// Update сохраняет результат обработки записи.
func (r *LogRepo) Update(ctx context.Context, e *domain.LogEntry) error {
	query := `
		UPDATE bridge_log
		SET record_id = $2, status = $3, error = $4, processed_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.RecordID,
		e.Status,
		nullString(e.Error),
		e.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("update log entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает журнальные записи, свежие первыми.
// status == "" — без фильтра. limit <= 0 — значение по умолчанию 100.
func (r *LogRepo) List(ctx context.Context, status domain.LogStatus, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, queue_name, payload, operation, model_name,
		       record_id, status, error, created_at, processed_at
		FROM bridge_log
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// PurgeSuccessBefore удаляет записи в статусе success, созданные
// раньше cutoff. Возвращает количество удалённых.
func (r *LogRepo) PurgeSuccessBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM bridge_log WHERE status = $1 AND created_at < $2`
	result, err := r.pool.Exec(ctx, query, domain.LogStatusSuccess, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge log entries: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *LogRepo) scanEntry(row pgx.Row) (*domain.LogEntry, error) {
	var e domain.LogEntry
	var payloadJSON []byte
	var errText *string

	err := row.Scan(
		&e.ID,
		&e.QueueName,
		&payloadJSON,
		&e.Operation,
		&e.ModelName,
		&e.RecordID,
		&e.Status,
		&errText,
		&e.CreatedAt,
		&e.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan log entry: %w", err)
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if errText != nil {
		e.Error = *errText
	}
	return &e, nil
}

// marshalPayload сериализует payload, сохраняя различие между
// пустым объектом и отсутствующим (NULL).
func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}
