package metrics

import (
	"errors"

	"github.com/Borislavv/shared-handle/pkg/prometheus/metrics/keyword"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var MetricRegisterErrorMessage = "failed to register metric"

// Meter is the metrics surface the middlewares and controllers write to.
type Meter interface {
	IncTotal(path string, method string, status string)
	IncStatus(path string, method string, status string)
	NewResponseTimeTimer(path string, method string) *prometheus.Timer
	FlushResponseTimeTimer(t *prometheus.Timer)

	HandleCreated()
	HandleCloned()
	HandleReleased()
	ValueDestroyed()
	AllocFailed()
	WeakUpgrade(ok bool)
}

type Metrics struct {
	totalRequestsCounter    *prometheus.CounterVec
	totalResponsesCounter   *prometheus.CounterVec
	responseStatusesCounter *prometheus.CounterVec
	responseTimeMsCounter   *prometheus.HistogramVec

	liveHandlesGauge       prometheus.Gauge
	handlesCreatedCounter  prometheus.Counter
	handlesClonedCounter   prometheus.Counter
	handlesReleasedCounter prometheus.Counter
	valuesDestroyedCounter prometheus.Counter
	allocFailuresCounter   prometheus.Counter
	weakUpgradesCounter    *prometheus.CounterVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		totalRequestsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.TotalHttpRequestsMetricName,
				Help: "Number of all requests.",
			},
			[]string{"path", "method"},
		),
		totalResponsesCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.TotalHttpResponsesMetricName,
				Help: "Number of all responses.",
			},
			[]string{"path", "method", "status"},
		),
		responseStatusesCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.HttpResponseStatusesMetricName,
				Help: "Status of HTTP response.",
			},
			[]string{"path", "method", "status"},
		),
		responseTimeMsCounter: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: keyword.HttpResponseTimeMsMetricName,
			Help: "Duration of HTTP requests.",
		}, []string{"path", "method"}),
		liveHandlesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: keyword.LiveHandlesMetricName,
			Help: "Number of currently live strong handles.",
		}),
		handlesCreatedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.HandlesCreatedMetricName,
			Help: "Number of handles created.",
		}),
		handlesClonedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.HandlesClonedMetricName,
			Help: "Number of handle clones taken.",
		}),
		handlesReleasedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.HandlesReleasedMetricName,
			Help: "Number of handle releases.",
		}),
		valuesDestroyedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.ValuesDestroyedMetricName,
			Help: "Number of managed values destroyed (last owner released).",
		}),
		allocFailuresCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.AllocFailuresMetricName,
			Help: "Number of refused handle allocations.",
		}),
		weakUpgradesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: keyword.WeakUpgradesMetricName,
			Help: "Number of weak upgrade attempts by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.totalRequestsCounter,
		m.totalResponsesCounter,
		m.responseStatusesCounter,
		m.responseTimeMsCounter,
		m.liveHandlesGauge,
		m.handlesCreatedCounter,
		m.handlesClonedCounter,
		m.handlesReleasedCounter,
		m.valuesDestroyedCounter,
		m.allocFailuresCounter,
		m.weakUpgradesCounter,
	} {
		if err := prometheus.Register(c); err != nil {
			log.Err(err).Msg(MetricRegisterErrorMessage)
			return nil, errors.New(MetricRegisterErrorMessage)
		}
	}

	return m, nil
}

// RegisterArenaGauge exposes the arena's current reservation level without
// the arena knowing anything about prometheus.
func RegisterArenaGauge(used func() int64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: keyword.ArenaUsedBytesMetricName,
		Help: "Bytes currently reserved in the handle arena.",
	}, func() float64 { return float64(used()) })
	if err := prometheus.Register(g); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return errors.New(MetricRegisterErrorMessage)
	}
	return nil
}

// RegisterRegistryGauge exposes the registry entry count the same way.
func RegisterRegistryGauge(length func() int64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: keyword.RegistryEntriesMetricName,
		Help: "Number of entries currently stored in the handle registry.",
	}, func() float64 { return float64(length()) })
	if err := prometheus.Register(g); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return errors.New(MetricRegisterErrorMessage)
	}
	return nil
}

// IncTotal increments request/response total counters depending on the
// status argument: empty string counts a request, anything else counts a
// response with that status.
func (m *Metrics) IncTotal(path string, method string, status string) {
	if status != "" {
		m.totalResponsesCounter.With(prometheus.Labels{
			"path":   path,
			"method": method,
			"status": status,
		}).Inc()
		return
	}
	m.totalRequestsCounter.With(prometheus.Labels{
		"path":   path,
		"method": method,
	}).Inc()
}

func (m *Metrics) IncStatus(path string, method string, status string) {
	m.responseStatusesCounter.With(prometheus.Labels{
		"path":   path,
		"method": method,
		"status": status,
	}).Inc()
}

func (m *Metrics) NewResponseTimeTimer(path string, method string) *prometheus.Timer {
	return prometheus.NewTimer(m.responseTimeMsCounter.WithLabelValues(path, method))
}

func (m *Metrics) FlushResponseTimeTimer(t *prometheus.Timer) {
	t.ObserveDuration()
}

func (m *Metrics) HandleCreated() {
	m.handlesCreatedCounter.Inc()
	m.liveHandlesGauge.Inc()
}

func (m *Metrics) HandleCloned() {
	m.handlesClonedCounter.Inc()
	m.liveHandlesGauge.Inc()
}

func (m *Metrics) HandleReleased() {
	m.handlesReleasedCounter.Inc()
	m.liveHandlesGauge.Dec()
}

func (m *Metrics) ValueDestroyed() {
	m.valuesDestroyedCounter.Inc()
}

func (m *Metrics) AllocFailed() {
	m.allocFailuresCounter.Inc()
}

func (m *Metrics) WeakUpgrade(ok bool) {
	if ok {
		m.weakUpgradesCounter.WithLabelValues("hit").Inc()
	} else {
		m.weakUpgradesCounter.WithLabelValues("miss").Inc()
	}
}
