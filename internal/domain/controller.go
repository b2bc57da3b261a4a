package domain

import (
	"time"

	"github.com/google/uuid"
)

// ControllerState — состояние consumer controller'а.
type ControllerState string

const (
	// ControllerStateDraft — создан, но ни разу не запускался.
	ControllerStateDraft ControllerState = "draft"

	// ControllerStateRunning — consumer запущен и привязан к очереди.
	ControllerStateRunning ControllerState = "running"

	// ControllerStateStopped — consumer остановлен.
	ControllerStateStopped ControllerState = "stopped"
)

// ExchangeType — тип AMQP exchange.
type ExchangeType string

const (
	ExchangeDirect  ExchangeType = "direct"
	ExchangeTopic   ExchangeType = "topic"
	ExchangeFanout  ExchangeType = "fanout"
	ExchangeHeaders ExchangeType = "headers"
)

// IsValid проверяет, что тип exchange известен.
func (e ExchangeType) IsValid() bool {
	switch e {
	case ExchangeDirect, ExchangeTopic, ExchangeFanout, ExchangeHeaders:
		return true
	}
	return false
}

// Controller — одна логическая привязка consumer'а к очереди.
//
// Контроллер создаётся в состоянии draft. Start переводит его в running
// и поднимает живой consumer, ключом которого служит имя очереди.
// Stop переводит в stopped и гасит consumer. На процесс допускается
// не более одного живого consumer'а на имя очереди.
type Controller struct {
	// ID — уникальный идентификатор контроллера.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя.
	Name string `json:"name"`

	// Queue — имя очереди, из которой потребляются сообщения.
	Queue string `json:"queue"`

	// Exchange — имя exchange для привязки очереди.
	// Пустая строка — default exchange, привязка не нужна.
	Exchange string `json:"exchange,omitempty"`

	// ExchangeType — тип exchange (direct/topic/fanout/headers).
	ExchangeType ExchangeType `json:"exchange_type"`

	// State — текущее состояние контроллера.
	State ControllerState `json:"state"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// NewController создаёт контроллер в состоянии draft.
func NewController(name, queue, exchange string, exchangeType ExchangeType) *Controller {
	if exchangeType == "" {
		exchangeType = ExchangeDirect
	}
	return &Controller{
		ID:           uuid.New(),
		Name:         name,
		Queue:        queue,
		Exchange:     exchange,
		ExchangeType: exchangeType,
		State:        ControllerStateDraft,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarkRunning переводит контроллер в состояние running.
func (c *Controller) MarkRunning() {
	c.State = ControllerStateRunning
}

// MarkStopped переводит контроллер в состояние stopped.
func (c *Controller) MarkStopped() {
	c.State = ControllerStateStopped
}
