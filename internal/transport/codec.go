// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package transport carries QoS policy transactions to the entity that
// programs the access point. The production implementation speaks a
// wpa_supplicant-style control socket; the simulator serves tests and
// the airqos-sim harness.
//
// Control protocol, one datagram per message:
//
//	PING                                    -> PONG
//	ATTACH                                  -> OK        (monitor socket)
//	GET_CAPABILITY qos                      -> protocol=2 max_policies=16
//	QOS_POLICY_ADD <link> <policy> ...      -> OK <code>,<code>,...
//	QOS_POLICY_REMOVE <link> <id>,<id>,...  -> OK <code>,<code>,...
//
// A policy is comma-joined k=v fields (id and dir always present).
// Status codes are SENT, ACTIVE, INVALID, FAIL, one per submitted
// policy, in submission order. Confirmations arrive unsolicited on the
// monitor socket:
//
//	<3>QOS-POLICY-RESPONSE <link> <id>,<id>,...
package transport

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/airqos/internal/errors"
	"grimm.is/airqos/internal/qos"
)

const eventPolicyResponse = "QOS-POLICY-RESPONSE"

// encodePolicy renders one policy as its wire fields. Unset optional
// fields are omitted.
func encodePolicy(p *qos.Policy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%d", p.WireID())
	if p.Direction == qos.DirectionDownlink {
		b.WriteString(",dir=down")
	} else {
		b.WriteString(",dir=up")
	}
	if p.UserPriority != qos.Unset {
		fmt.Fprintf(&b, ",up=%d", p.UserPriority)
	}
	if p.DSCP != qos.Unset {
		fmt.Fprintf(&b, ",dscp=%d", p.DSCP)
	}
	if p.IPVersion != qos.Unset {
		fmt.Fprintf(&b, ",ipv=%d", p.IPVersion)
	}
	if p.Protocol != qos.ProtocolAny {
		fmt.Fprintf(&b, ",proto=%d", p.Protocol)
	}
	if p.SourcePort != qos.Unset {
		fmt.Fprintf(&b, ",sport=%d", p.SourcePort)
	}
	if p.DestPort != nil {
		fmt.Fprintf(&b, ",dport=%d-%d", p.DestPort.Start, p.DestPort.End)
	}
	if p.SourceAddr.IsValid() {
		fmt.Fprintf(&b, ",src=%s", p.SourceAddr)
	}
	if p.DestAddr.IsValid() {
		fmt.Fprintf(&b, ",dst=%s", p.DestAddr)
	}
	return b.String()
}

func encodeWireIDs(ids []qos.WireID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

func parseWireIDs(s string) ([]qos.WireID, error) {
	if s == "" {
		return nil, errors.New(errors.KindTransport, "empty wire id list")
	}
	parts := strings.Split(s, ",")
	ids := make([]qos.WireID, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < qos.WireIDMin || n > qos.WireIDMax {
			return nil, errors.Errorf(errors.KindTransport, "bad wire id %q", part)
		}
		ids[i] = qos.WireID(n)
	}
	return ids, nil
}

func encodeSubmitStatus(s qos.SubmitStatus) string {
	switch s {
	case qos.SubmitSent:
		return "SENT"
	case qos.SubmitAlreadyActive:
		return "ACTIVE"
	case qos.SubmitInvalid:
		return "INVALID"
	default:
		return "FAIL"
	}
}

func parseSubmitStatus(s string) (qos.SubmitStatus, error) {
	switch s {
	case "SENT":
		return qos.SubmitSent, nil
	case "ACTIVE":
		return qos.SubmitAlreadyActive, nil
	case "INVALID":
		return qos.SubmitInvalid, nil
	case "FAIL":
		return qos.SubmitError, nil
	default:
		return qos.SubmitError, errors.Errorf(errors.KindTransport, "unknown status code %q", s)
	}
}

// parseStatusReply parses an "OK <code>,<code>,..." reply into one
// PolicyStatus per submitted wire ID, in order.
func parseStatusReply(reply string, wireIDs []qos.WireID) ([]qos.PolicyStatus, error) {
	body, ok := strings.CutPrefix(reply, "OK")
	if !ok {
		return nil, errors.Errorf(errors.KindTransport, "command rejected: %s", reply)
	}
	codes := strings.Split(strings.TrimSpace(body), ",")
	if len(codes) != len(wireIDs) {
		return nil, errors.Errorf(errors.KindTransport,
			"reply carries %d statuses for %d policies", len(codes), len(wireIDs))
	}
	results := make([]qos.PolicyStatus, len(codes))
	for i, code := range codes {
		status, err := parseSubmitStatus(code)
		if err != nil {
			return nil, err
		}
		results[i] = qos.PolicyStatus{WireID: wireIDs[i], Status: status}
	}
	return results, nil
}

// parseEvent parses an unsolicited monitor line. The priority prefix
// ("<3>") is optional.
func parseEvent(line string) (link string, ids []qos.WireID, ok bool) {
	if strings.HasPrefix(line, "<") {
		if end := strings.Index(line, ">"); end >= 0 {
			line = line[end+1:]
		}
	}
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != eventPolicyResponse {
		return "", nil, false
	}
	ids, err := parseWireIDs(fields[2])
	if err != nil {
		return "", nil, false
	}
	return fields[1], ids, true
}
