// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))

	c.RequestQueued("add")
	c.ResultDelivered()
	c.Submission("wlan0", "ok")
	c.Confirmation("wlan0", "matched")
	c.SetQueueDepth("wlan0", 3)
	c.SetTrackedPolicies(5)
	c.SetLivenessWatches(1)
	c.PolicyReplay(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["airqos_requests_queued_total"])
	assert.True(t, names["airqos_tracked_policies"])
	assert.True(t, names["airqos_confirmations_total"])
}

func TestRegisterTwiceFails(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
}

func TestNilCollectorRecordsNothing(t *testing.T) {
	var c *Collector
	require.NoError(t, c.Register(prometheus.NewRegistry()))
	c.RequestQueued("add")
	c.ResultDelivered()
	c.Submission("wlan0", "error")
	c.Confirmation("wlan0", "timeout")
	c.SetQueueDepth("wlan0", 0)
	c.SetTrackedPolicies(0)
	c.SetLivenessWatches(0)
	c.PolicyReplay(0)
}
