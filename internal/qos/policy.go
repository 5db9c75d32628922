// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package qos implements the QoS policy request dispatch engine: it
// accepts add/remove requests from applications, serializes them into
// per-link submission queues, reconciles access-point confirmations,
// and guarantees that each caller is notified exactly once.
package qos

import (
	"fmt"
	"net/netip"

	"grimm.is/airqos/internal/errors"
)

// Application-visible policy IDs live in [1, 255]. The control channel
// carries a signed byte, so tracked policies are assigned a wire ID in
// [-128, 127] by the tracking table.
const (
	PolicyIDMin = 1
	PolicyIDMax = 255

	WireIDMin = -128
	WireIDMax = 127
)

// WireID is the link-layer representation of a tracked policy.
type WireID = int8

// Direction of the classified traffic flow.
type Direction int

const (
	DirectionDownlink Direction = iota
	DirectionUplink
)

func (d Direction) String() string {
	switch d {
	case DirectionDownlink:
		return "downlink"
	case DirectionUplink:
		return "uplink"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// User priority (802.11 UP) values accepted for downlink policies.
const (
	UserPriorityBackgroundLow  = 1
	UserPriorityBackgroundHigh = 2
	UserPriorityBestEffortLow  = 0
	UserPriorityBestEffortHigh = 3
	UserPriorityVideoLow       = 4
	UserPriorityVideoHigh      = 5
	UserPriorityVoiceLow       = 6
	UserPriorityVoiceHigh      = 7
)

// IP version selectors.
const (
	IPVersion4 = 4
	IPVersion6 = 6
)

// Transport protocol selectors. ProtocolAny matches any protocol.
const (
	ProtocolAny = -1
	ProtocolTCP = 6
	ProtocolUDP = 17
	ProtocolESP = 50
)

// Unset marks an optional numeric field that the caller did not supply.
const Unset = -1

// PortRange is an inclusive destination port match.
type PortRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Policy is one QoS marking rule for a traffic flow. The zero values of
// optional fields are not meaningful; use NewPolicy to get a Policy with
// optional fields marked Unset.
type Policy struct {
	PolicyID     int        `json:"policy_id"`
	Direction    Direction  `json:"direction"`
	UserPriority int        `json:"user_priority"`
	IPVersion    int        `json:"ip_version"`
	DSCP         int        `json:"dscp"`
	Protocol     int        `json:"protocol"`
	SourcePort   int        `json:"source_port"`
	DestPort     *PortRange `json:"dest_port,omitempty"`
	SourceAddr   netip.Addr `json:"source_addr,omitempty"`
	DestAddr     netip.Addr `json:"dest_addr,omitempty"`

	// wireID is assigned by the tracking table when the policy is
	// admitted. It is only valid while the policy is tracked.
	wireID WireID
}

// NewPolicy returns a policy with all optional fields marked Unset.
func NewPolicy(policyID int, direction Direction) *Policy {
	return &Policy{
		PolicyID:     policyID,
		Direction:    direction,
		UserPriority: Unset,
		IPVersion:    Unset,
		DSCP:         Unset,
		Protocol:     ProtocolAny,
		SourcePort:   Unset,
	}
}

// WireID returns the link-layer ID assigned by the tracking table.
func (p *Policy) WireID() WireID { return p.wireID }

func (p *Policy) setWireID(id WireID) { p.wireID = id }

// Validate checks field ranges and the per-direction requirements.
func (p *Policy) Validate() error {
	if p.PolicyID < PolicyIDMin || p.PolicyID > PolicyIDMax {
		return errors.Errorf(errors.KindValidation,
			"policy id %d out of range [%d, %d]", p.PolicyID, PolicyIDMin, PolicyIDMax)
	}
	if p.Direction != DirectionDownlink && p.Direction != DirectionUplink {
		return errors.Errorf(errors.KindValidation, "invalid direction %d", int(p.Direction))
	}
	if p.DSCP != Unset && (p.DSCP < 0 || p.DSCP > 63) {
		return errors.Errorf(errors.KindValidation, "dscp %d out of range [0, 63]", p.DSCP)
	}
	if p.UserPriority != Unset && (p.UserPriority < 0 || p.UserPriority > 7) {
		return errors.Errorf(errors.KindValidation, "user priority %d out of range [0, 7]", p.UserPriority)
	}
	if p.SourcePort != Unset && (p.SourcePort < 0 || p.SourcePort > 65535) {
		return errors.Errorf(errors.KindValidation, "source port %d out of range", p.SourcePort)
	}
	if p.DestPort != nil {
		if p.DestPort.Start < 0 || p.DestPort.End > 65535 || p.DestPort.Start > p.DestPort.End {
			return errors.Errorf(errors.KindValidation,
				"destination port range [%d, %d] invalid", p.DestPort.Start, p.DestPort.End)
		}
	}
	if p.IPVersion != Unset && p.IPVersion != IPVersion4 && p.IPVersion != IPVersion6 {
		return errors.Errorf(errors.KindValidation, "ip version %d invalid", p.IPVersion)
	}
	if p.Direction == DirectionDownlink {
		// Downlink classification is performed by the access point and
		// needs both fields on the wire.
		if p.UserPriority == Unset {
			return errors.New(errors.KindValidation, "downlink policy requires a user priority")
		}
		if p.IPVersion == Unset {
			return errors.New(errors.KindValidation, "downlink policy requires an ip version")
		}
	}
	return nil
}

func (p *Policy) String() string {
	return fmt.Sprintf("{policyId: %d, direction: %s, up: %d, dscp: %d, wireId: %d}",
		p.PolicyID, p.Direction, p.UserPriority, p.DSCP, p.wireID)
}

// RequestStatus is the per-policy status reported back to the caller.
type RequestStatus int

const (
	// StatusTracking: the policy was accepted and is being tracked.
	StatusTracking RequestStatus = iota
	// StatusAlreadyActive: an identical policy is already tracked for
	// this owner.
	StatusAlreadyActive
	// StatusInsufficientResources: no capacity, or no link is available
	// to carry the policy.
	StatusInsufficientResources
	// StatusInvalidParameters: the policy was rejected by validation or
	// by the access point.
	StatusInvalidParameters
	// StatusFailureUnknown: the submission failed for an unspecified
	// reason.
	StatusFailureUnknown
)

func (s RequestStatus) String() string {
	switch s {
	case StatusTracking:
		return "tracking"
	case StatusAlreadyActive:
		return "already_active"
	case StatusInsufficientResources:
		return "insufficient_resources"
	case StatusInvalidParameters:
		return "invalid_parameters"
	case StatusFailureUnknown:
		return "failure_unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// uniformStatusList returns a status list of the given size with every
// entry set to the same code.
func uniformStatusList(size int, status RequestStatus) []RequestStatus {
	list := make([]RequestStatus, size)
	for i := range list {
		list[i] = status
	}
	return list
}
