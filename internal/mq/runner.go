package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

// maxReconnectDelay — потолок backoff-задержки в секундах.
const maxReconnectDelay = 30

// Runner владеет заменяемым супервизором и крутит его в цикле,
// переподключаясь после сбоев транспорта.
//
// Политика задержки: стартует с нуля; если предыдущий супервизор
// хотя бы раз дошёл до consuming — сброс в 0 (мгновенный повтор после
// обрыва посреди работы), иначе +1 секунда за попытку с потолком 30
// (линейный разгон, когда брокер недоступен с самого начала).
//
// Runner рассчитан на один запуск: на каждый старт контроллера
// реестр строит новый экземпляр.
type Runner struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	sup     *Supervisor

	delay int
}

// NewRunner создаёт Runner для конфигурации cfg.
func NewRunner(cfg SupervisorConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg,
		logger:  telemetry.WithQueue(logger, cfg.Queue),
		running: true,
	}
}

// Run блокирует до Stop() или отмены контекста.
//
// Каждая итерация строит свежий супервизор: экземпляр с отработавшим
// соединением не переиспользуется, чтобы не тащить протухшее состояние
// сокета и канала.
func (r *Runner) Run(ctx context.Context) {
	for r.isRunning() && ctx.Err() == nil {
		sup := NewSupervisor(r.cfg)

		r.mu.Lock()
		if !r.running {
			r.mu.Unlock()
			return
		}
		r.sup = sup
		r.mu.Unlock()

		if err := sup.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("consumer exited", "error", err)
		}

		if !r.maybeReconnect(ctx, sup) {
			return
		}
	}
}

// maybeReconnect выполняет проверку после каждой итерации.
// Возвращает false, когда цикл должен завершиться.
func (r *Runner) maybeReconnect(ctx context.Context, sup *Supervisor) bool {
	if !sup.ShouldReconnect() {
		return false
	}
	sup.Stop()

	delay := r.NextDelay(sup.WasConsuming())
	telemetry.ReconnectsTotal.WithLabelValues(r.cfg.Queue).Inc()
	r.logger.Info("reconnecting", "delay_seconds", delay)

	if delay > 0 {
		select {
		case <-time.After(time.Duration(delay) * time.Second):
		case <-ctx.Done():
			return false
		}
	}
	return r.isRunning()
}

// NextDelay вычисляет задержку перед следующей попыткой.
func (r *Runner) NextDelay(wasConsuming bool) int {
	if wasConsuming {
		r.delay = 0
		return r.delay
	}
	r.delay++
	if r.delay > maxReconnectDelay {
		r.delay = maxReconnectDelay
	}
	return r.delay
}

// Stop останавливает цикл и текущий супервизор.
// Безопасен из любой горутины, идемпотентен.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	sup := r.sup
	r.mu.Unlock()

	if sup != nil {
		sup.Stop()
	}
}

func (r *Runner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
