package api

import (
	"time"

	"github.com/shaiso/attendance-bridge/internal/domain"
)

// --- Requests ---

// CreateControllerRequest — создание контроллера.
type CreateControllerRequest struct {
	Name         string `json:"name"`
	Queue        string `json:"queue"`
	Exchange     string `json:"exchange"`
	ExchangeType string `json:"exchange_type"`
}

// PurgeRequest — запуск retention-свипа.
// RetentionHours <= 0 — окно по умолчанию (48 часов).
type PurgeRequest struct {
	RetentionHours int `json:"retention_hours"`
}

// --- Responses ---

// ControllerResponse — контроллер из API.
type ControllerResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Queue        string `json:"queue"`
	Exchange     string `json:"exchange,omitempty"`
	ExchangeType string `json:"exchange_type"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
}

// LogResponse — журнальная запись из API.
type LogResponse struct {
	ID          string         `json:"id"`
	QueueName   string         `json:"queue_name"`
	Payload     map[string]any `json:"payload,omitempty"`
	Operation   string         `json:"operation"`
	ModelName   string         `json:"model_name,omitempty"`
	RecordID    *int64         `json:"record_id,omitempty"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
	ProcessedAt string         `json:"processed_at,omitempty"`
}

// PurgeResponse — результат retention-свипа.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// ControllerFromDomain конвертирует контроллер в DTO.
func ControllerFromDomain(c domain.Controller) ControllerResponse {
	return ControllerResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Queue:        c.Queue,
		Exchange:     c.Exchange,
		ExchangeType: string(c.ExchangeType),
		State:        string(c.State),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

// LogFromDomain конвертирует журнальную запись в DTO.
func LogFromDomain(e domain.LogEntry) LogResponse {
	resp := LogResponse{
		ID:        e.ID.String(),
		QueueName: e.QueueName,
		Payload:   e.Payload,
		Operation: string(e.Operation),
		ModelName: e.ModelName,
		RecordID:  e.RecordID,
		Status:    string(e.Status),
		Error:     e.Error,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.ProcessedAt != nil {
		resp.ProcessedAt = e.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}
