// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes Prometheus instrumentation for the QoS
// dispatch engine. A nil *Collector is valid and records nothing, so
// unit tests can skip metrics wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all QoS dispatch metrics.
type Collector struct {
	RequestsQueued   *prometheus.CounterVec
	ResultsDelivered prometheus.Counter
	Submissions      *prometheus.CounterVec
	Confirmations    *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	TrackedPolicies  prometheus.Gauge
	LivenessWatches  prometheus.Gauge
	PoliciesReplayed prometheus.Counter
}

// NewCollector creates the metric set.
func NewCollector() *Collector {
	return &Collector{
		RequestsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airqos_requests_queued_total",
			Help: "Total number of application requests queued, by type",
		}, []string{"type"}),
		ResultsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airqos_results_delivered_total",
			Help: "Total number of one-shot result callbacks delivered",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airqos_submissions_total",
			Help: "Total number of synchronous link-layer submissions, by link and outcome",
		}, []string{"link", "outcome"}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airqos_confirmations_total",
			Help: "Total number of confirmation events, by link and disposition",
		}, []string{"link", "disposition"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airqos_link_queue_depth",
			Help: "Number of operations waiting in each link submission queue",
		}, []string{"link"}),
		TrackedPolicies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airqos_tracked_policies",
			Help: "Number of policies currently held in the tracking table",
		}),
		LivenessWatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airqos_liveness_watches",
			Help: "Number of owners with a registered liveness watch",
		}),
		PoliciesReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airqos_policies_replayed_total",
			Help: "Total number of policies replayed to newly added links",
		}),
	}
}

// Register registers every metric with the given registerer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		c.RequestsQueued,
		c.ResultsDelivered,
		c.Submissions,
		c.Confirmations,
		c.QueueDepth,
		c.TrackedPolicies,
		c.LivenessWatches,
		c.PoliciesReplayed,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RequestQueued records one queued request of the given type
// ("add", "remove", "remove_all").
func (c *Collector) RequestQueued(requestType string) {
	if c == nil {
		return
	}
	c.RequestsQueued.WithLabelValues(requestType).Inc()
}

// ResultDelivered records one delivered result callback.
func (c *Collector) ResultDelivered() {
	if c == nil {
		return
	}
	c.ResultsDelivered.Inc()
}

// Submission records one synchronous submission outcome
// ("ok" or "error").
func (c *Collector) Submission(link, outcome string) {
	if c == nil {
		return
	}
	c.Submissions.WithLabelValues(link, outcome).Inc()
}

// Confirmation records one confirmation disposition
// ("matched", "unsolicited", "timeout").
func (c *Collector) Confirmation(link, disposition string) {
	if c == nil {
		return
	}
	c.Confirmations.WithLabelValues(link, disposition).Inc()
}

// SetQueueDepth records the current depth of one link queue.
func (c *Collector) SetQueueDepth(link string, depth int) {
	if c == nil {
		return
	}
	c.QueueDepth.WithLabelValues(link).Set(float64(depth))
}

// SetTrackedPolicies records the current tracking-table size.
func (c *Collector) SetTrackedPolicies(n int) {
	if c == nil {
		return
	}
	c.TrackedPolicies.Set(float64(n))
}

// SetLivenessWatches records the current number of liveness watches.
func (c *Collector) SetLivenessWatches(n int) {
	if c == nil {
		return
	}
	c.LivenessWatches.Set(float64(n))
}

// PolicyReplay records policies replayed to a newly added link.
func (c *Collector) PolicyReplay(n int) {
	if c == nil {
		return
	}
	c.PoliciesReplayed.Add(float64(n))
}
