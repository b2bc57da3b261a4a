package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// State — состояние супервизора.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConsuming    State = "consuming"
)

// SupervisorConfig — конфигурация одного consumer'а.
type SupervisorConfig struct {
	// URL — amqp/amqps URL брокера.
	URL string

	// Queue — имя очереди. Объявляется durable.
	Queue string

	// Exchange — имя exchange для привязки очереди.
	// Пустая строка — default exchange, привязка пропускается.
	Exchange string

	// ExchangeType — тип exchange.
	ExchangeType domain.ExchangeType

	// OnMessage — callback обработки сообщения.
	OnMessage MessageFunc

	// Transport — сетевой слой. nil — production AMQP.
	Transport Transport

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Supervisor владеет ровно одним соединением и каналом.
//
// Жизненный цикл:
//
//	disconnected → Start() → connecting → consuming → disconnected
//
// Любая ошибка на пути к consuming, как и неожиданное закрытие
// соединения брокером, выставляет shouldReconnect и останавливает
// супервизор. Сам супервизор никогда не повторяет подключение —
// это работа Runner'а; экземпляр после остановки не переиспользуется.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu              sync.Mutex
	state           State
	conn            Conn
	closing         bool
	shouldReconnect bool
	wasConsuming    bool

	stopCh chan struct{}
}

// NewSupervisor создаёт супервизор в состоянии disconnected.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Transport == nil {
		cfg.Transport = NewAMQPTransport()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: telemetry.WithQueue(logger, cfg.Queue),
		state:  StateDisconnected,
		stopCh: make(chan struct{}),
	}
}

// Start блокирует до остановки: устанавливает соединение, открывает
// канал, объявляет durable очередь и потребляет сообщения.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setState(StateConnecting)
	s.logger.Info("connecting to broker")

	conn, err := s.cfg.Transport.Dial(s.cfg.URL)
	if err != nil {
		s.connectionLost()
		s.Stop()
		return fmt.Errorf("dial broker: %w", err)
	}

	s.mu.Lock()
	if s.closing {
		// Stop() успели вызвать во время dial.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		s.connectionLost()
		s.Stop()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.DeclareQueue(s.cfg.Queue); err != nil {
		s.connectionLost()
		s.Stop()
		return err
	}

	if s.cfg.Exchange != "" {
		if err := ch.BindQueue(s.cfg.Queue, s.cfg.Exchange, s.cfg.ExchangeType); err != nil {
			s.connectionLost()
			s.Stop()
			return err
		}
	}

	deliveries, err := ch.Consume(s.cfg.Queue)
	if err != nil {
		s.connectionLost()
		s.Stop()
		return err
	}

	s.markConsuming()
	s.logger.Info("consuming")

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case d, ok := <-deliveries:
			if !ok {
				// Соединение закрыто брокером, не нами.
				s.connectionLost()
				s.Stop()
				return fmt.Errorf("connection closed by broker")
			}
			s.handleDelivery(ch, d)
		}
	}
}

// handleDelivery передаёт доставку callback'у и подтверждает её.
//
// Ack выполняется всегда, даже если callback паникует: политика
// at-most-once, редоставка после сбоя обработчика не предусмотрена.
// Падение процесса между ack и записью журнала теряет сообщение —
// осознанный компромисс.
func (s *Supervisor) handleDelivery(ch Channel, d Delivery) {
	telemetry.MessagesConsumed.WithLabelValues(s.cfg.Queue).Inc()

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("message callback panicked", "panic", r)
			}
		}()
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(d)
		}
	}()

	if err := ch.Ack(d.Tag); err != nil {
		s.logger.Error("ack failed", "tag", d.Tag, "error", err)
	}
}

// Stop останавливает супервизор. Идемпотентен, безопасен из любой
// горутины: первый вызов закрывает соединение и выводит Start из
// цикла, последующие — no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.state = StateDisconnected
	conn := s.conn
	close(s.stopCh)
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warn("close connection", "error", err)
		}
	}
	s.logger.Info("consumer stopped")
}

// ShouldReconnect сообщает, был ли останов вызван сбоем,
// требующим переподключения.
func (s *Supervisor) ShouldReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldReconnect
}

// WasConsuming сообщает, дошёл ли супервизор до состояния consuming
// хотя бы раз. Управляет сбросом backoff-задержки в Runner'е.
func (s *Supervisor) WasConsuming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wasConsuming
}

// State возвращает текущее состояние.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) markConsuming() {
	s.mu.Lock()
	s.state = StateConsuming
	s.wasConsuming = true
	s.mu.Unlock()
}

// connectionLost помечает сбой транспорта. Явный Stop() со стороны
// пользователя переподключения не требует.
func (s *Supervisor) connectionLost() {
	s.mu.Lock()
	if !s.closing {
		s.shouldReconnect = true
	}
	s.mu.Unlock()
}
