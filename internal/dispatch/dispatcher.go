// Package dispatch превращает доставку брокера в журнальную запись.
//
// На каждое сообщение: декодировать тело, извлечь метаданные маршрута
// (операция, модель, record_id), создать запись журнала и сразу
// выполнить операцию. Всё — в собственной короткоживущей области, сбой
// здесь никогда не доходит до потока подтверждений брокера.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/mq"
	"github.com/shaiso/attendance-bridge/internal/oplog"
	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// Заголовки сообщения с метаданными операции.
const (
	headerOperation = "operation"
	headerModel     = "model"
)

// processTimeout — бюджет обработки одного сообщения.
// Обработка идёт синхронно в потоке доставки и не должна морить
// event loop голодом.
const processTimeout = 30 * time.Second

// Dispatcher обрабатывает доставленные сообщения.
type Dispatcher struct {
	svc    *oplog.Service
	logger *slog.Logger
}

// New создаёт Dispatcher.
func New(svc *oplog.Service, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{svc: svc, logger: logger}
}

// Handle — mq.MessageFunc: вызывается супервизором до ack.
//
// Ошибки персистентности логируются и не пробрасываются: сообщение
// будет подтверждено в любом случае (at-most-once).
func (d *Dispatcher) Handle(del mq.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	entry := d.buildEntry(del)
	if err := d.svc.Ingest(ctx, entry); err != nil {
		telemetry.WithQueue(d.logger, del.RoutingKey).Error("failed to log message", "error", err)
	}
}

// buildEntry собирает запись журнала из доставки.
//
// Нечитаемое тело даёт запись с пустым payload'ом, а не отказ: очередь
// не должна вставать из-за одного кривого сообщения.
func (d *Dispatcher) buildEntry(del mq.Delivery) *domain.LogEntry {
	payload := d.decodePayload(del)

	op := domain.OperationKind(headerString(del.Headers, headerOperation))
	model := headerString(del.Headers, headerModel)

	return domain.NewLogEntry(del.RoutingKey, payload, op, model, peekRecordID(payload))
}

func (d *Dispatcher) decodePayload(del mq.Delivery) map[string]any {
	if len(del.Body) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(del.Body, &payload); err != nil {
		telemetry.WithQueue(d.logger, del.RoutingKey).Warn("invalid message body", "error", err)
		return nil
	}
	return payload
}

// headerString достаёт строковый заголовок; отсутствующий или
// нестроковый — пустая строка.
func headerString(headers map[string]any, key string) string {
	if v, ok := headers[key].(string); ok {
		return v
	}
	return ""
}

// peekRecordID подсматривает record_id в payload'е, не удаляя его:
// из сохранённого payload'а его извлечёт Execute.
func peekRecordID(payload map[string]any) *int64 {
	switch n := payload["record_id"].(type) {
	case float64:
		id := int64(n)
		return &id
	case int64:
		return &n
	case int:
		id := int64(n)
		return &id
	default:
		return nil
	}
}
