// Package store реализует внешнее хранилище бизнес-записей поверх
// Postgres.
//
// Хранилище обобщённое: одна таблица bridge_record с именем модели и
// jsonb-полями. Бизнес-схема целевых записей сюда сознательно не
// переносится — модель для моста лишь строка в model_name
// (например "hr.attendance").
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore — Postgres-реализация oplog.Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore создаёт PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Create создаёт запись модели и возвращает присвоенный идентификатор.
func (s *PGStore) Create(ctx context.Context, model string, fields map[string]any) (int64, error) {
	if model == "" {
		return 0, fmt.Errorf("model name is empty")
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO bridge_record (model_name, fields, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, model, fieldsJSON).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// Write дописывает поля существующей записи (merge jsonb).
// Возвращает false, если записи нет.
func (s *PGStore) Write(ctx context.Context, model string, recordID int64, fields map[string]any) (bool, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		UPDATE bridge_record
		SET fields = fields || $3::jsonb, updated_at = now()
		WHERE model_name = $1 AND id = $2
	`
	result, err := s.pool.Exec(ctx, query, model, recordID, fieldsJSON)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Exists проверяет существование записи модели.
func (s *PGStore) Exists(ctx context.Context, model string, recordID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bridge_record WHERE model_name = $1 AND id = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, model, recordID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}
	return exists, nil
}
