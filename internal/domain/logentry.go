package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind — семантика операции над внешним хранилищем.
type OperationKind string

const (
	// OperationCreate — создать новую запись.
	OperationCreate OperationKind = "create"

	// OperationWrite — обновить существующую запись по record_id.
	OperationWrite OperationKind = "write"
)

// LogStatus — статус журнальной записи.
type LogStatus string

const (
	// LogStatusNew — запись создана, операция ещё не выполнялась.
	LogStatusNew LogStatus = "new"

	// LogStatusSuccess — операция выполнена успешно.
	LogStatusSuccess LogStatus = "success"

	// LogStatusFail — операция завершилась ошибкой (см. Error).
	LogStatusFail LogStatus = "fail"
)

// LogEntry — журнальная запись одного входящего сообщения.
//
// Создаётся ровно одна на каждое доставленное сообщение, независимо от
// того, удалась ли последующая запись во внешнее хранилище. Брокерный
// слой после создания запись не трогает; переходы статуса выполняет
// oplog state machine:
//
//	new → success | fail
//
// Повторная обработка (retry) прогоняет тот же переход заново из
// сохранённых operation/payload.
type LogEntry struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// QueueName — очередь, из которой пришло сообщение (routing key доставки).
	QueueName string `json:"queue_name"`

	// Payload — декодированное тело сообщения.
	// nil, если тело не распарсилось как JSON.
	Payload map[string]any `json:"payload,omitempty"`

	// Operation — запрошенная операция (create/write) из заголовка сообщения.
	Operation OperationKind `json:"operation"`

	// ModelName — имя модели внешнего хранилища, к которой применяется операция.
	ModelName string `json:"model_name"`

	// RecordID — идентификатор записи во внешнем хранилище.
	// Для write приходит в payload, для create заполняется после успеха.
	RecordID *int64 `json:"record_id,omitempty"`

	// Status — текущий статус (new/success/fail).
	Status LogStatus `json:"status"`

	// Error — причина последней неудачи. Пустая строка при успехе.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// ProcessedAt — время последнего перехода из new.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewLogEntry создаёт запись в статусе new.
func NewLogEntry(queueName string, payload map[string]any, op OperationKind, modelName string, recordID *int64) *LogEntry {
	return &LogEntry{
		ID:        uuid.New(),
		QueueName: queueName,
		Payload:   payload,
		Operation: op,
		ModelName: modelName,
		RecordID:  recordID,
		Status:    LogStatusNew,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkSuccess переводит запись в success и сохраняет record_id.
// Предыдущая ошибка очищается.
func (e *LogEntry) MarkSuccess(recordID int64) {
	now := time.Now().UTC()
	e.Status = LogStatusSuccess
	e.RecordID = &recordID
	e.Error = ""
	e.ProcessedAt = &now
}

// MarkFail переводит запись в fail с причиной.
func (e *LogEntry) MarkFail(reason string) {
	now := time.Now().UTC()
	e.Status = LogStatusFail
	e.Error = reason
	e.ProcessedAt = &now
}

// ResetForRetry возвращает запись в new для повторной обработки.
// Operation и Payload остаются как были сохранены.
func (e *LogEntry) ResetForRetry() {
	e.Status = LogStatusNew
	e.Error = ""
	e.ProcessedAt = nil
}
