// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package transport

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/airqos/internal/qos"
)

func TestEncodePolicyMinimal(t *testing.T) {
	p := qos.NewPolicy(5, qos.DirectionUplink)
	p.DSCP = 46
	assert.Equal(t, "id=0,dir=up,dscp=46", encodePolicy(p))
}

func TestEncodePolicyFull(t *testing.T) {
	p := qos.NewPolicy(5, qos.DirectionDownlink)
	p.UserPriority = qos.UserPriorityVoiceHigh
	p.IPVersion = qos.IPVersion4
	p.DSCP = 46
	p.Protocol = qos.ProtocolUDP
	p.SourcePort = 5000
	p.DestPort = &qos.PortRange{Start: 6000, End: 6010}
	p.SourceAddr = netip.MustParseAddr("192.0.2.1")
	p.DestAddr = netip.MustParseAddr("192.0.2.2")

	assert.Equal(t,
		"id=0,dir=down,up=7,dscp=46,ipv=4,proto=17,sport=5000,dport=6000-6010,src=192.0.2.1,dst=192.0.2.2",
		encodePolicy(p))
}

func TestParseStatusReply(t *testing.T) {
	ids := []qos.WireID{-128, -127, 0}

	results, err := parseStatusReply("OK SENT,ACTIVE,INVALID", ids)
	require.NoError(t, err)
	assert.Equal(t, []qos.PolicyStatus{
		{WireID: -128, Status: qos.SubmitSent},
		{WireID: -127, Status: qos.SubmitAlreadyActive},
		{WireID: 0, Status: qos.SubmitInvalid},
	}, results)

	_, err = parseStatusReply("FAIL busy", ids)
	assert.Error(t, err)

	_, err = parseStatusReply("OK SENT,SENT", ids)
	assert.Error(t, err)

	_, err = parseStatusReply("OK SENT,SENT,BOGUS", ids)
	assert.Error(t, err)
}

func TestParseEvent(t *testing.T) {
	link, ids, ok := parseEvent("<3>QOS-POLICY-RESPONSE wlan0 -128,-127")
	require.True(t, ok)
	assert.Equal(t, "wlan0", link)
	assert.Equal(t, []qos.WireID{-128, -127}, ids)

	// Priority prefix is optional.
	_, _, ok = parseEvent("QOS-POLICY-RESPONSE wlan0 5")
	assert.True(t, ok)

	for _, line := range []string{
		"<3>CTRL-EVENT-CONNECTED",
		"QOS-POLICY-RESPONSE wlan0",
		"QOS-POLICY-RESPONSE wlan0 oops",
		"QOS-POLICY-RESPONSE wlan0 300",
		"",
	} {
		_, _, ok := parseEvent(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestWireIDRoundTrip(t *testing.T) {
	ids := []qos.WireID{-128, -1, 0, 127}
	parsed, err := parseWireIDs(encodeWireIDs(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, parsed)
}
