package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChallengeCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewChallengeCollector(reg)

	c.CommandHandled("challenge.accept", OutcomeAccepted, time.Millisecond)
	c.CommandHandled("challenge.accept", OutcomeRejected, time.Millisecond)
	c.CommandHandled("challenge.accept", OutcomeRejected, time.Millisecond)
	c.EscrowMoved("in", 3)
	c.EscrowMoved("out", 2)
	c.SubscriberEventDropped()
	c.InstancesLoaded(4)

	require.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("challenge.accept", OutcomeAccepted)))
	require.Equal(t, 2.0, testutil.ToFloat64(c.commands.WithLabelValues("challenge.accept", OutcomeRejected)))
	require.Equal(t, 3.0, testutil.ToFloat64(c.escrow.WithLabelValues("in")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.escrow.WithLabelValues("out")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.droppedEvents))
	require.Equal(t, 4.0, testutil.ToFloat64(c.loadedInstances))
}

func TestNoopCollectorSatisfiesInterface(t *testing.T) {
	var m EngineMetrics = NewNoopCollector()
	m.CommandHandled("x", OutcomeFailed, 0)
	m.SubscriberEventDropped()
}
