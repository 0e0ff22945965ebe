// Package metrics exposes Prometheus counters for the bot. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vocanova"

type Metrics struct {
	registry *prometheus.Registry

	updates          *prometheus.CounterVec
	handlerErrors    *prometheus.CounterVec
	quizzesCompleted *prometheus.CounterVec
	quizScore        prometheus.Histogram
	powerUpsUsed     *prometheus.CounterVec
	purchases        *prometheus.CounterVec
	achievements     *prometheus.CounterVec
	currencyAwarded  prometheus.Counter
	videoSessions    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates handled, by kind",
		}, []string{"kind"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Handler errors, by command",
		}, []string{"command"}),
		quizzesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_completed_total",
			Help:      "Completed quizzes, by quiz id",
		}, []string{"quiz_id"}),
		quizScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_score",
			Help:      "Distribution of quiz scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		powerUpsUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "powerups_used_total",
			Help:      "Power-up uses, by type and outcome",
		}, []string{"type", "outcome"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shop_purchases_total",
			Help:      "Shop purchases, by item and outcome",
		}, []string{"item", "outcome"}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_total",
			Help:      "Achievement transitions, by action",
		}, []string{"action"}),
		currencyAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_awarded_total",
			Help:      "Currency credited to users",
		}),
		videoSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "video_sessions",
			Help:      "Registered video playback sessions",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.handlerErrors,
		m.quizzesCompleted,
		m.quizScore,
		m.powerUpsUsed,
		m.purchases,
		m.achievements,
		m.currencyAwarded,
		m.videoSessions,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) HandlerError(command string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(command).Inc()
}

func (m *Metrics) QuizCompleted(quizID string, score int) {
	if m == nil {
		return
	}
	m.quizzesCompleted.WithLabelValues(quizID).Inc()
	m.quizScore.Observe(float64(score))
}

func (m *Metrics) PowerUpUsed(typ, outcome string) {
	if m == nil {
		return
	}
	m.powerUpsUsed.WithLabelValues(typ, outcome).Inc()
}

func (m *Metrics) Purchase(item, outcome string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(item, outcome).Inc()
}

func (m *Metrics) Achievement(action string) {
	if m == nil {
		return
	}
	m.achievements.WithLabelValues(action).Inc()
}

func (m *Metrics) CurrencyAwarded(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.currencyAwarded.Add(float64(amount))
}

func (m *Metrics) SetVideoSessions(n int) {
	if m == nil {
		return
	}
	m.videoSessions.Set(float64(n))
}
