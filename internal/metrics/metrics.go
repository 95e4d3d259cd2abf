// Package metrics exports command and key space statistics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mockredis/mockredis/internal/engine"
	"github.com/mockredis/mockredis/internal/reply"
)

const namespace = "mockredis"

// Metrics records commands run by an engine instance. It implements
// engine.Observer.
type Metrics struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates Metrics with their own registry, which also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of commands processed, partitioned by command name and outcome.",
			},
			[]string{"cmd", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command execution latency in seconds, partitioned by command name.",
				Buckets:   []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"cmd"},
		),
	}
	m.registry.MustRegister(
		m.commands,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// status names the outcome of a command for the status label.
func status(err error) string {
	if err == nil {
		return "ok"
	}
	var re *reply.Error
	if errors.As(err, &re) {
		return re.Kind.String()
	}
	return "error"
}

func (m *Metrics) ObserveCommand(name string, took time.Duration, err error) {
	m.commands.WithLabelValues(name, status(err)).Inc()
	m.duration.WithLabelValues(name).Observe(took.Seconds())
}

// Watch exports the key space of the instance behind stats on every
// scrape. stats must be safe to call from the scraping goroutine.
func (m *Metrics) Watch(stats func() engine.Stats) error {
	return m.registry.Register(newCollector(stats))
}

// Registry returns the registry metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// collector pulls instance statistics on each scrape.
type collector struct {
	stats func() engine.Stats

	keys     *prometheus.Desc
	expires  *prometheus.Desc
	uptime   *prometheus.Desc
	lastSave *prometheus.Desc
}

func newCollector(stats func() engine.Stats) *collector {
	return &collector{
		stats:    stats,
		keys:     prometheus.NewDesc(namespace+"_keys", "Number of live keys per database.", []string{"server", "db"}, nil),
		expires:  prometheus.NewDesc(namespace+"_keys_with_expiry", "Number of live keys with a TTL per database.", []string{"server", "db"}, nil),
		uptime:   prometheus.NewDesc(namespace+"_uptime_seconds", "Seconds since the instance started.", []string{"server"}, nil),
		lastSave: prometheus.NewDesc(namespace+"_last_save_timestamp", "Unix timestamp of the last successful save.", []string{"server"}, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expires
	ch <- c.uptime
	ch <- c.lastSave
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	for _, db := range st.DBs {
		idx := strconv.Itoa(db.Index)
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(db.Keys), st.Name, idx)
		ch <- prometheus.MustNewConstMetric(c.expires, prometheus.GaugeValue, float64(db.Expires), st.Name, idx)
	}
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, st.Uptime.Seconds(), st.Name)
	if !st.LastSave.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastSave, prometheus.GaugeValue, float64(st.LastSave.Unix()), st.Name)
	}
}
