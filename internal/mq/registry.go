package mq

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// stopTimeout — сколько ждём завершения горутины consumer'а при останове.
const stopTimeout = 5 * time.Second

var (
	// ErrAlreadyRunning — очередь уже обслуживается живым consumer'ом.
	// Повторный Start — no-op, не ошибка процесса.
	ErrAlreadyRunning = errors.New("consumer already running")

	// ErrNotRunning — для очереди нет живого consumer'а.
	ErrNotRunning = errors.New("consumer is not running")
)

// Registry — реестр живых consumer'ов процесса: имя очереди → runner.
//
// Единственное разделяемое изменяемое состояние между контроллерами.
// Вставка и удаление синхронизированы, чтобы два почти одновременных
// Start одной очереди не подняли два consumer'а. Создаётся один раз
// на процесс и гасится целиком на shutdown.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	consumers map[string]*handle
}

type handle struct {
	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		consumers: make(map[string]*handle),
	}
}

// Start поднимает consumer очереди cfg.Queue в фоновой горутине.
// Если очередь уже обслуживается — ErrAlreadyRunning, существующий
// consumer не заменяется.
func (g *Registry) Start(cfg SupervisorConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.consumers[cfg.Queue]; ok {
		return ErrAlreadyRunning
	}

	runner := NewRunner(cfg)
	// Контекст живёт со времени старта до Stop, независимо от вызвавшего запроса.
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		runner: runner,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	g.consumers[cfg.Queue] = h
	telemetry.ConsumersRunning.Inc()

	go func() {
		defer close(h.done)
		runner.Run(ctx)
	}()

	g.logger.Info("consumer registered", "queue", cfg.Queue)
	return nil
}

// Stop гасит consumer очереди и ждёт завершения горутины
// (с ограничением stopTimeout).
func (g *Registry) Stop(queue string) error {
	g.mu.Lock()
	h, ok := g.consumers[queue]
	if ok {
		delete(g.consumers, queue)
	}
	g.mu.Unlock()

	if !ok {
		return ErrNotRunning
	}

	g.stopHandle(queue, h)
	return nil
}

// StopAll гасит все consumer'ы. Используется на shutdown процесса.
func (g *Registry) StopAll() {
	g.mu.Lock()
	snapshot := g.consumers
	g.consumers = make(map[string]*handle)
	g.mu.Unlock()

	for queue, h := range snapshot {
		g.stopHandle(queue, h)
	}
}

func (g *Registry) stopHandle(queue string, h *handle) {
	h.runner.Stop()
	h.cancel()

	select {
	case <-h.done:
	case <-time.After(stopTimeout):
		g.logger.Warn("consumer did not stop in time", "queue", queue)
	}

	telemetry.ConsumersRunning.Dec()
	g.logger.Info("consumer unregistered", "queue", queue)
}

// IsRunning сообщает, обслуживается ли очередь.
func (g *Registry) IsRunning(queue string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.consumers[queue]
	return ok
}

// Running возвращает отсортированный список обслуживаемых очередей.
func (g *Registry) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	queues := make([]string, 0, len(g.consumers))
	for q := range g.consumers {
		queues = append(queues, q)
	}
	sort.Strings(queues)
	return queues
}
