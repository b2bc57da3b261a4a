// Package controller управляет жизненным циклом consumer controller'ов:
// start/stop отдельного контроллера, возобновление running-контроллеров
// при старте процесса и полный останов на shutdown.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/mq"
	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// Controllers — персистентность контроллеров. Реализуется
// repo.ControllerRepo.
type Controllers interface {
	Create(ctx context.Context, c *domain.Controller) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Controller, error)
	List(ctx context.Context) ([]domain.Controller, error)
	ListByState(ctx context.Context, state domain.ControllerState) ([]domain.Controller, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.ControllerState) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrRunning — контроллер обслуживается живым consumer'ом,
// операция требует предварительного Stop.
var ErrRunning = errors.New("controller is running")

// Manager связывает персистентные контроллеры с реестром живых
// consumer'ов.
type Manager struct {
	controllers Controllers
	registry    *mq.Registry
	brokerURL   string
	transport   mq.Transport
	onMessage   mq.MessageFunc
	logger      *slog.Logger
}

// Config — зависимости Manager'а.
type Config struct {
	Controllers Controllers
	Registry    *mq.Registry

	// BrokerURL — amqp/amqps URL брокера.
	BrokerURL string

	// Transport — сетевой слой (nil — production AMQP).
	Transport mq.Transport

	// OnMessage — обработчик сообщений всех поднимаемых consumer'ов.
	OnMessage mq.MessageFunc

	Logger *slog.Logger
}

// New создаёт Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		controllers: cfg.Controllers,
		registry:    cfg.Registry,
		brokerURL:   cfg.BrokerURL,
		transport:   cfg.Transport,
		onMessage:   cfg.OnMessage,
		logger:      logger,
	}
}

// Create регистрирует новый контроллер в состоянии draft.
func (m *Manager) Create(ctx context.Context, name, queue, exchange string, exchangeType domain.ExchangeType) (*domain.Controller, error) {
	if queue == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if exchangeType != "" && !exchangeType.IsValid() {
		return nil, fmt.Errorf("unknown exchange type %q", exchangeType)
	}
	if name == "" {
		name = queue
	}

	c := domain.NewController(name, queue, exchange, exchangeType)
	if err := m.controllers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Start поднимает consumer контроллера и переводит его в running.
//
// Если очередь уже обслуживается, возвращается mq.ErrAlreadyRunning
// вместе с контроллером: существующий consumer не заменяется,
// состояние не меняется.
func (m *Manager) Start(ctx context.Context, id uuid.UUID) (*domain.Controller, error) {
	c, err := m.controllers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.registry.Start(m.supervisorConfig(c)); err != nil {
		if errors.Is(err, mq.ErrAlreadyRunning) {
			return c, err
		}
		return nil, err
	}

	c.MarkRunning()
	if err := m.controllers.UpdateState(ctx, c.ID, c.State); err != nil {
		return nil, err
	}

	telemetry.WithController(m.logger, c.ID.String()).Info("controller started", "queue", c.Queue)
	return c, nil
}

// Stop гасит consumer контроллера и переводит его в stopped.
// Отсутствие живого consumer'а не ошибка: состояние всё равно
// фиксируется как stopped.
func (m *Manager) Stop(ctx context.Context, id uuid.UUID) (*domain.Controller, error) {
	c, err := m.controllers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.registry.Stop(c.Queue); err != nil && !errors.Is(err, mq.ErrNotRunning) {
		return nil, err
	}

	c.MarkStopped()
	if err := m.controllers.UpdateState(ctx, c.ID, c.State); err != nil {
		return nil, err
	}

	telemetry.WithController(m.logger, c.ID.String()).Info("controller stopped", "queue", c.Queue)
	return c, nil
}

// Delete удаляет контроллер. Работающий контроллер сначала
// останавливают: удаление из-под живого consumer'а запрещено.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) (*domain.Controller, error) {
	c, err := m.controllers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if m.registry.IsRunning(c.Queue) {
		return nil, ErrRunning
	}

	if err := m.controllers.Delete(ctx, c.ID); err != nil {
		return nil, err
	}

	telemetry.WithController(m.logger, c.ID.String()).Info("controller deleted", "queue", c.Queue)
	return c, nil
}

// ResumeRunning поднимает consumer'ы всех контроллеров, сохранённых
// как running. Вызывается при старте процесса: контроллеры переживают
// перезапуск демона.
func (m *Manager) ResumeRunning(ctx context.Context) error {
	running, err := m.controllers.ListByState(ctx, domain.ControllerStateRunning)
	if err != nil {
		return fmt.Errorf("list running controllers: %w", err)
	}

	for i := range running {
		c := &running[i]
		if err := m.registry.Start(m.supervisorConfig(c)); err != nil {
			if errors.Is(err, mq.ErrAlreadyRunning) {
				continue
			}
			m.logger.Error("failed to resume controller", "controller_id", c.ID, "queue", c.Queue, "error", err)
			continue
		}
		m.logger.Info("controller resumed", "controller_id", c.ID, "queue", c.Queue)
	}
	return nil
}

// Shutdown гасит все живые consumer'ы, не меняя сохранённых состояний:
// running-контроллеры возобновятся при следующем старте.
func (m *Manager) Shutdown() {
	m.registry.StopAll()
}

func (m *Manager) supervisorConfig(c *domain.Controller) mq.SupervisorConfig {
	return mq.SupervisorConfig{
		URL:          m.brokerURL,
		Queue:        c.Queue,
		Exchange:     c.Exchange,
		ExchangeType: c.ExchangeType,
		OnMessage:    m.onMessage,
		Transport:    m.transport,
		Logger:       m.logger,
	}
}
