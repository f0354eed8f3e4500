// Package metrics объявляет метрики Prometheus портала.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "finportal"

// Metrics набор счётчиков конвейера авторизации запросов.
type Metrics struct {
	// GateDecisions считает решения шлюза доступа по классу маршрута и исходу.
	GateDecisions *prometheus.CounterVec
	// RateLimited считает отклонённые ограничителем запросы.
	RateLimited prometheus.Counter
	// LimiterErrors считает ошибки хранилища ограничителя.
	LimiterErrors prometheus.Counter
	// AuditEnqueued, AuditDropped и AuditFlushErrors описывают работу журнала аудита.
	AuditEnqueued    prometheus.Counter
	AuditDropped     prometheus.Counter
	AuditFlushErrors prometheus.Counter
	// Reconciliations считает сверки платежей по источнику и результату.
	Reconciliations *prometheus.CounterVec
	// RequestDuration — длительность обработанных шлюзом запросов.
	RequestDuration *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg. Nil reg означает отдельный реестр.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Access gate decisions by route class and outcome.",
		}, []string{"access", "outcome"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		LimiterErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "errors_total",
			Help:      "Rate limiter backend errors; requests are admitted on error.",
		}),
		AuditEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "enqueued_total",
			Help:      "Audit records accepted into the buffer.",
		}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit records dropped because the buffer was full or closed.",
		}),
		AuditFlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "flush_errors_total",
			Help:      "Failed audit batch writes.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliations by trigger and result.",
		}, []string{"source", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of authenticated requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	reg.MustRegister(
		m.GateDecisions,
		m.RateLimited,
		m.LimiterErrors,
		m.AuditEnqueued,
		m.AuditDropped,
		m.AuditFlushErrors,
		m.Reconciliations,
		m.RequestDuration,
	)
	return m
}
