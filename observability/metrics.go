// Package observability exposes the Prometheus metrics of the relay.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_relay"

// Delivery outcomes
const (
	Delivered = "delivered"
	Offline   = "offline"
	Dropped   = "dropped"
)

// Message failure reasons
const (
	ReasonValidation  = "validation"
	ReasonPersistence = "persistence"
)

// IMetrics is what the services and workers record into.
type IMetrics interface {
	RecordEvent(name string)
	RecordEventFailure(name string)
	RecordMessagePersisted(latency time.Duration)
	RecordMessageFailure(reason string)
	RecordDelivery(result string)
	RecordCensored(lang string, count int)
	SetConnections(n int)
	SetProcessUsage(rssBytes uint64, cpuPercent float64)
}

type Collector struct {
	events          *prometheus.CounterVec
	eventFailures   *prometheus.CounterVec
	messages        prometheus.Counter
	messageFailures *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	persistLatency  prometheus.Histogram
	censored        *prometheus.CounterVec
	connections     prometheus.Gauge
	processRSS      prometheus.Gauge
	processCPU      prometheus.Gauge
}

// NewCollector builds the collector and registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound real-time events handled, by event name.",
		}, []string{"event"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_failures_total",
			Help:      "Inbound real-time events that failed, by event name.",
		}, []string{"event"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages persisted.",
		}),
		messageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_failures_total",
			Help:      "Messages answered with messageFailed, by reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound events routed to a connection, by result.",
		}, []string{"result"}),
		persistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_latency_seconds",
			Help:      "Latency of message appends.",
			Buckets:   prometheus.DefBuckets,
		}),
		censored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "censored_words_total",
			Help:      "Censored words, by detected language.",
		}, []string{"lang"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Identities currently registered.",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the relay process.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the relay process.",
		}),
	}

	reg.MustRegister(
		c.events,
		c.eventFailures,
		c.messages,
		c.messageFailures,
		c.deliveries,
		c.persistLatency,
		c.censored,
		c.connections,
		c.processRSS,
		c.processCPU,
	)
	return c
}

func (c *Collector) RecordEvent(name string) {
	c.events.WithLabelValues(name).Inc()
}

func (c *Collector) RecordEventFailure(name string) {
	c.eventFailures.WithLabelValues(name).Inc()
}

func (c *Collector) RecordMessagePersisted(latency time.Duration) {
	c.messages.Inc()
	c.persistLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordMessageFailure(reason string) {
	c.messageFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordDelivery(result string) {
	c.deliveries.WithLabelValues(result).Inc()
}

// RecordCensored ignores messages without any censored word.
func (c *Collector) RecordCensored(lang string, count int) {
	if count == 0 {
		return
	}
	if lang == "" {
		lang = "unknown"
	}
	c.censored.WithLabelValues(lang).Add(float64(count))
}

func (c *Collector) SetConnections(n int) {
	c.connections.Set(float64(n))
}

func (c *Collector) SetProcessUsage(rssBytes uint64, cpuPercent float64) {
	c.processRSS.Set(float64(rssBytes))
	c.processCPU.Set(cpuPercent)
}

// Handler serves the gathered metrics in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
