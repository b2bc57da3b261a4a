package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/attendance-bridge/internal/domain"
)

// ControllerRepo — репозиторий consumer controller'ов.
type ControllerRepo struct {
	pool *pgxpool.Pool
}

// NewControllerRepo создаёт новый ControllerRepo.
func NewControllerRepo(pool *pgxpool.Pool) *ControllerRepo {
	return &ControllerRepo{pool: pool}
}

// Create сохраняет новый контроллер.
func (r *ControllerRepo) Create(ctx context.Context, c *domain.Controller) error {
	query := `
		INSERT INTO bridge_controller (id, name, queue, exchange, exchange_type, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Queue,
		nullString(c.Exchange),
		c.ExchangeType,
		c.State,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert controller: %w", err)
	}
	return nil
}

// GetByID возвращает контроллер по ID.
func (r *ControllerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Controller, error) {
	query := `
		SELECT id, name, queue, exchange, exchange_type, state, created_at
		FROM bridge_controller
		WHERE id = $1
	`
	return r.scanController(r.pool.QueryRow(ctx, query, id))
}

// List возвращает все контроллеры.
func (r *ControllerRepo) List(ctx context.Context) ([]domain.Controller, error) {
	query := `
		SELECT id, name, queue, exchange, exchange_type, state, created_at
		FROM bridge_controller
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list controllers: %w", err)
	}
	defer rows.Close()

	var controllers []domain.Controller
	for rows.Next() {
		c, err := r.scanController(rows)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, *c)
	}
	return controllers, rows.Err()
}

// ListByState возвращает контроллеры в указанном состоянии.
func (r *ControllerRepo) ListByState(ctx context.Context, state domain.ControllerState) ([]domain.Controller, error) {
	query := `
		SELECT id, name, queue, exchange, exchange_type, state, created_at
		FROM bridge_controller
		WHERE state = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("list controllers by state: %w", err)
	}
	defer rows.Close()

	var controllers []domain.Controller
	for rows.Next() {
		c, err := r.scanController(rows)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, *c)
	}
	return controllers, rows.Err()
}

// UpdateState сохраняет новое состояние контроллера.
func (r *ControllerRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.ControllerState) error {
	query := `UPDATE bridge_controller SET state = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, state)
	if err != nil {
		return fmt.Errorf("update controller state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет контроллер.
func (r *ControllerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM bridge_controller WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete controller: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ControllerRepo) scanController(row pgx.Row) (*domain.Controller, error) {
	var c domain.Controller
	var exchange *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Queue,
		&exchange,
		&c.ExchangeType,
		&c.State,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan controller: %w", err)
	}

	if exchange != nil {
		c.Exchange = *exchange
	}
	return &c, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
