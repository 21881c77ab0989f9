// Package metrics exposes Prometheus collectors for API traffic, polling and
// device function values.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hubspace/internal/domain"
)

const namespace = "hubspace"

// Metrics holds the collectors. A nil *Metrics ignores every call.
type Metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	functionValue *prometheus.GaugeVec
	polls         *prometheus.CounterVec
	pollSuccess   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HubSpace API round trips by endpoint and HTTP status.",
		}, []string{"endpoint", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "HubSpace API round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		functionValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_function_value",
			Help:      "Last reported value of a numeric or on/off device function.",
		}, []string{"device_id", "name", "device_class", "function"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "State polls by result.",
		}, []string{"result"}),
		pollSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_success_timestamp_seconds",
			Help:      "Unix time of the last successful state poll.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.latency, m.functionValue, m.polls, m.pollSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one API round trip. code 0 means no response.
func (m *Metrics) ObserveRequest(endpoint string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(endpoint, label).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordDevice sets the function gauge for every state that has a numeric
// reading. Other values are skipped.
func (m *Metrics) RecordDevice(d domain.Device, states []domain.State) {
	if m == nil {
		return
	}
	for _, s := range states {
		v, ok := NumericValue(s.Value)
		if !ok {
			continue
		}
		m.functionValue.WithLabelValues(d.ID, d.Name(), d.DeviceClass, s.Key()).Set(v)
	}
}

// PublishDevices replaces every function gauge with the readings of devices,
// dropping series of devices and functions that are no longer reported.
func (m *Metrics) PublishDevices(devices []domain.Device) {
	if m == nil {
		return
	}
	m.functionValue.Reset()
	for _, d := range devices {
		m.RecordDevice(d, d.States)
	}
}

// RecordPoll counts a poll and stamps the success time.
func (m *Metrics) RecordPoll(err error, at time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.polls.WithLabelValues("error").Inc()
		return
	}
	m.polls.WithLabelValues("success").Inc()
	m.pollSuccess.Set(float64(at.UnixNano()) / 1e9)
}

// NumericValue maps a state value to a gauge reading: numbers as is,
// booleans and on/off as 1/0.
func NumericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		switch strings.ToLower(val) {
		case "on", "true":
			return 1, true
		case "off", "false":
			return 0, true
		}
	}
	return 0, false
}
