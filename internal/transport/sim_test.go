// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/airqos/internal/clock"
	"grimm.is/airqos/internal/qos"
)

// simPolicies builds policies carrying distinct wire IDs the way the
// tracking table would have assigned them.
func simPolicies(ids ...qos.WireID) []*qos.Policy {
	policies := make([]*qos.Policy, len(ids))
	for i, id := range ids {
		p := qos.NewPolicy(i+1, qos.DirectionUplink)
		// A single-slot table assigns exactly the wanted wire ID.
		qos.NewTrackingTable(int(id), int(id)).AddPolicies([]*qos.Policy{p}, 1)
		policies[i] = p
	}
	return policies
}

func newTestSim(t *testing.T) (*Simulator, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMock(time.Unix(1000, 0))
	return NewSimulator(SimOptions{Logger: testLogger(), Clock: clk}), clk
}

func TestSimulatorAddAndConfirm(t *testing.T) {
	sim, clk := newTestSim(t)

	var confirmed []qos.PolicyStatus
	sim.SetConfirmationHandler(func(link string, results []qos.PolicyStatus) {
		assert.Equal(t, "wlan0", link)
		confirmed = append(confirmed, results...)
	})

	policies := simPolicies(3, 4)
	results, err := sim.AddPolicies("wlan0", policies)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, qos.SubmitSent, r.Status)
	}
	assert.Equal(t, []qos.WireID{3, 4}, sim.Active("wlan0"))
	assert.Empty(t, confirmed)

	clk.Advance(DefaultSimConfirmDelay)
	require.Len(t, confirmed, 2)
}

func TestSimulatorDuplicateAdd(t *testing.T) {
	sim, _ := newTestSim(t)
	policies := simPolicies(3)

	_, err := sim.AddPolicies("wlan0", policies)
	require.NoError(t, err)
	results, err := sim.AddPolicies("wlan0", policies)
	require.NoError(t, err)
	assert.Equal(t, qos.SubmitAlreadyActive, results[0].Status)

	// A different link has independent state.
	results, err = sim.AddPolicies("wlan1", policies)
	require.NoError(t, err)
	assert.Equal(t, qos.SubmitSent, results[0].Status)
}

func TestSimulatorScriptedStatus(t *testing.T) {
	sim, _ := newTestSim(t)
	sim.ScriptStatus(3, qos.SubmitInvalid)
	policies := simPolicies(3)

	results, err := sim.AddPolicies("wlan0", policies)
	require.NoError(t, err)
	assert.Equal(t, qos.SubmitInvalid, results[0].Status)
	assert.Empty(t, sim.Active("wlan0"))

	// The script is consumed; the next add succeeds.
	results, err = sim.AddPolicies("wlan0", policies)
	require.NoError(t, err)
	assert.Equal(t, qos.SubmitSent, results[0].Status)
}

func TestSimulatorFailNext(t *testing.T) {
	sim, _ := newTestSim(t)
	scripted := errors.New("firmware wedged")
	sim.FailNext(scripted)

	_, err := sim.AddPolicies("wlan0", simPolicies(3))
	assert.Equal(t, scripted, err)

	_, err = sim.AddPolicies("wlan0", simPolicies(3))
	assert.NoError(t, err)
}

func TestSimulatorRemove(t *testing.T) {
	sim, clk := newTestSim(t)
	_, err := sim.AddPolicies("wlan0", simPolicies(3, 4))
	require.NoError(t, err)
	clk.Advance(DefaultSimConfirmDelay)

	results, err := sim.RemovePolicies("wlan0", []qos.WireID{3, 99})
	require.NoError(t, err)
	assert.Equal(t, qos.SubmitSent, results[0].Status)
	assert.Equal(t, qos.SubmitError, results[1].Status)
	assert.Equal(t, []qos.WireID{4}, sim.Active("wlan0"))
}

func TestSimulatorSilent(t *testing.T) {
	sim, clk := newTestSim(t)
	sim.SetSilent(true)

	fired := false
	sim.SetConfirmationHandler(func(string, []qos.PolicyStatus) { fired = true })

	_, err := sim.AddPolicies("wlan0", simPolicies(3))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	assert.False(t, fired)
}
