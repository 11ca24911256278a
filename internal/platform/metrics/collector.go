// Package metrics exposes Prometheus collectors for the challenge engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespaceChallenge = "challenge"

// Outcome labels for handled commands.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeReplayed = "replayed"
)

// EngineMetrics records command handling in the challenge engine.
type EngineMetrics interface {
	CommandHandled(commandType string, outcome string, duration time.Duration)
	EscrowMoved(direction string, amount uint64)
	SubscriberEventDropped()
	InstancesLoaded(count int)
}

// ChallengeCollector implements EngineMetrics on Prometheus.
type ChallengeCollector struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	escrow          *prometheus.CounterVec
	droppedEvents   prometheus.Counter
	loadedInstances prometheus.Gauge
}

// NewChallengeCollector registers the engine collectors on reg.
func NewChallengeCollector(reg prometheus.Registerer) *ChallengeCollector {
	factory := promauto.With(reg)
	return &ChallengeCollector{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChallenge,
			Name:      "commands_total",
			Help:      "count of handled challenge commands by type and outcome",
		}, []string{"command", "outcome"}),

		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceChallenge,
			Name:      "command_duration_seconds",
			Help:      "time spent inside the per-challenge critical section",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"command"}),

		escrow: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChallenge,
			Name:      "escrow_units_total",
			Help:      "smallest currency units moved into or out of escrow",
		}, []string{"direction"}),

		droppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChallenge,
			Name:      "subscriber_dropped_events_total",
			Help:      "count of events dropped because a subscriber was not keeping up",
		}),

		loadedInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceChallenge,
			Name:      "instances",
			Help:      "number of challenge instances held by the engine",
		}),
	}
}

// CommandHandled counts a command and records its duration.
func (c *ChallengeCollector) CommandHandled(commandType string, outcome string, duration time.Duration) {
	c.commands.WithLabelValues(commandType, outcome).Inc()
	c.commandDuration.WithLabelValues(commandType).Observe(duration.Seconds())
}

// EscrowMoved adds amount to the deposit or payout counter.
func (c *ChallengeCollector) EscrowMoved(direction string, amount uint64) {
	c.escrow.WithLabelValues(direction).Add(float64(amount))
}

// SubscriberEventDropped counts an event a slow subscriber missed.
func (c *ChallengeCollector) SubscriberEventDropped() {
	c.droppedEvents.Inc()
}

// InstancesLoaded sets the number of instances held in memory.
func (c *ChallengeCollector) InstancesLoaded(count int) {
	c.loadedInstances.Set(float64(count))
}

// NoopCollector discards all measurements.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) CommandHandled(string, string, time.Duration) {}
func (nc *NoopCollector) EscrowMoved(string, uint64)                   {}
func (nc *NoopCollector) SubscriberEventDropped()                      {}
func (nc *NoopCollector) InstancesLoaded(int)                          {}
