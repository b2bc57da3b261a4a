package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики моста. Регистрируются в default registry и отдаются
// демоном через promhttp.
var (
	// MessagesConsumed — доставленные сообщения по очередям.
	// Считается до обработки: каждая доставка попадает сюда ровно один раз.
	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_consumed_total",
		Help: "Messages delivered by the broker, per queue.",
	}, []string{"queue"})

	// OperationsTotal — исходы операций журнала по видам.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_operations_total",
		Help: "Operation log transitions, per operation kind and resulting status.",
	}, []string{"operation", "status"})

	// ReconnectsTotal — попытки переподключения по очередям.
	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_reconnects_total",
		Help: "Broker reconnect attempts, per queue.",
	}, []string{"queue"})

	// ConsumersRunning — живые consumer'ы процесса.
	ConsumersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_consumers_running",
		Help: "Live consumers registered in this process.",
	})

	// LogPurged — журнальные записи, удалённые retention-свипом.
	LogPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_log_purged_total",
		Help: "Successful log entries removed by the retention sweep.",
	})
)
