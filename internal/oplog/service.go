package oplog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// DefaultRetention — окно хранения success-записей.
const DefaultRetention = 48 * time.Hour

// Тексты ошибок, попадающие в поле Error журнала.
// Формат устоявшийся, на него завязаны операторы и фильтры.
const (
	msgRecordNotFound = "Record not found for update."
	msgSyncErrorf     = "Sync Error: %v"
)

// Store — внешнее хранилище бизнес-записей.
//
// Каждая операция выполняется в собственной короткоживущей
// транзакции реализации.
type Store interface {
	// Create создаёт запись модели и возвращает её идентификатор.
	Create(ctx context.Context, model string, fields map[string]any) (int64, error)

	// Write обновляет поля существующей записи.
	Write(ctx context.Context, model string, recordID int64, fields map[string]any) (bool, error)

	// Exists проверяет существование записи.
	Exists(ctx context.Context, model string, recordID int64) (bool, error)
}

// Entries — персистентность журнала. Реализуется repo.LogRepo.
type Entries interface {
	Create(ctx context.Context, e *domain.LogEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error)
	Update(ctx context.Context, e *domain.LogEntry) error
	PurgeSuccessBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service — state machine журнала операций.
type Service struct {
	entries Entries
	store   Store
	logger  *slog.Logger
}

// NewService создаёт Service.
func NewService(entries Entries, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		entries: entries,
		store:   store,
		logger:  logger,
	}
}

// Ingest сохраняет новую запись и сразу обрабатывает её.
func (s *Service) Ingest(ctx context.Context, e *domain.LogEntry) error {
	if err := s.entries.Create(ctx, e); err != nil {
		return fmt.Errorf("create log entry: %w", err)
	}
	return s.Process(ctx, e)
}

// Process выполняет переход записи и сохраняет результат.
func (s *Service) Process(ctx context.Context, e *domain.LogEntry) error {
	s.Execute(ctx, e)

	telemetry.OperationsTotal.WithLabelValues(string(e.Operation), string(e.Status)).Inc()

	logger := telemetry.WithEntryID(telemetry.WithQueue(s.logger, e.QueueName), e.ID.String())
	if e.Status == domain.LogStatusSuccess {
		logger.Info("operation succeeded", "operation", e.Operation, "model", e.ModelName, "record_id", derefID(e.RecordID))
	} else {
		logger.Warn("operation failed", "operation", e.Operation, "model", e.ModelName, "reason", e.Error)
	}

	if err := s.entries.Update(ctx, e); err != nil {
		return fmt.Errorf("update log entry: %w", err)
	}
	return nil
}

// Execute — детерминированный переход new → success | fail.
//
// Шаги: нормализация datetime-полей payload'а, извлечение record_id,
// затем create/write против хранилища. Неизвестная операция — fail
// без обращения к хранилищу.
//
// Повторный Execute безопасен для write (та же запись, те же поля),
// но НЕ идемпотентен для create: каждый вызов создаёт новую внешнюю
// запись. Повтор create-записи оправдан только пока внешняя запись
// фактически не создана.
func (s *Service) Execute(ctx context.Context, e *domain.LogEntry) {
	vals, err := domain.NormalizeValues(e.Payload)
	if err != nil {
		e.MarkFail(err.Error())
		return
	}

	recordID := popRecordID(vals, e.RecordID)

	switch e.Operation {
	case domain.OperationCreate:
		id, err := s.store.Create(ctx, e.ModelName, vals)
		if err != nil {
			e.MarkFail(fmt.Sprintf(msgSyncErrorf, err))
			return
		}
		e.MarkSuccess(id)

	case domain.OperationWrite:
		if recordID == nil {
			e.MarkFail(msgRecordNotFound)
			return
		}
		exists, err := s.store.Exists(ctx, e.ModelName, *recordID)
		if err != nil {
			e.MarkFail(fmt.Sprintf(msgSyncErrorf, err))
			return
		}
		if !exists {
			e.MarkFail(msgRecordNotFound)
			return
		}
		if _, err := s.store.Write(ctx, e.ModelName, *recordID, vals); err != nil {
			e.MarkFail(fmt.Sprintf(msgSyncErrorf, err))
			return
		}
		e.MarkSuccess(*recordID)

	default:
		e.MarkFail(fmt.Sprintf("unknown operation %q", e.Operation))
	}
}

// Retry повторяет обработку записи из сохранённых operation/payload.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e.ResetForRetry()
	if err := s.Process(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// PurgeSuccessfulOlderThan удаляет success-записи старше retention.
// Чисто хозяйственная операция, на контракт обработки не влияет.
func (s *Service) PurgeSuccessfulOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}

	cutoff := time.Now().UTC().Add(-retention)
	n, err := s.entries.PurgeSuccessBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge log entries: %w", err)
	}

	if n > 0 {
		telemetry.LogPurged.Add(float64(n))
		s.logger.Info("purged successful log entries", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// popRecordID извлекает record_id из payload'а (и удаляет его оттуда,
// чтобы он не ушёл в поля хранилища). Если в payload'е его нет,
// используется значение из записи.
func popRecordID(vals map[string]any, fallback *int64) *int64 {
	v, ok := vals["record_id"]
	if !ok {
		return fallback
	}
	delete(vals, "record_id")

	switch n := v.(type) {
	case float64:
		id := int64(n)
		return &id
	case int64:
		return &n
	case int:
		id := int64(n)
		return &id
	default:
		return fallback
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
