// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import "fmt"

// SubmitStatus is the immediate per-policy result of a synchronous
// submission to the link-layer control channel.
type SubmitStatus int

const (
	// SubmitSent: the policy was forwarded to the access point and a
	// confirmation event is expected.
	SubmitSent SubmitStatus = iota
	// SubmitAlreadyActive: the access point already has this policy.
	SubmitAlreadyActive
	// SubmitInvalid: the policy was rejected as malformed.
	SubmitInvalid
	// SubmitError: the submission failed for an unspecified reason.
	SubmitError
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitSent:
		return "sent"
	case SubmitAlreadyActive:
		return "already_active"
	case SubmitInvalid:
		return "invalid"
	case SubmitError:
		return "error"
	default:
		return fmt.Sprintf("submit(%d)", int(s))
	}
}

// PolicyStatus pairs a wire ID with its submission or confirmation
// status.
type PolicyStatus struct {
	WireID WireID
	Status SubmitStatus
}

func (ps PolicyStatus) String() string {
	return fmt.Sprintf("{wireId: %d, status: %s}", ps.WireID, ps.Status)
}

// ConfirmationHandler receives asynchronous confirmation events from
// the access point for a previously submitted batch. Implementations of
// Transport may invoke it from any goroutine.
type ConfirmationHandler func(link string, results []PolicyStatus)

// Transport is the link-layer control channel used to program QoS
// policies on an access point. One implementation exists per supported
// protocol version and is selected once at construction; the dispatcher
// never branches on versions per call.
type Transport interface {
	// MaxPoliciesPerRequest reports the largest batch the control
	// channel accepts in one transaction.
	MaxPoliciesPerRequest() int

	// AddPolicies synchronously submits a batch of policies on the
	// given link and returns one status per policy, in input order.
	// A non-nil error means the whole batch failed.
	AddPolicies(link string, policies []*Policy) ([]PolicyStatus, error)

	// RemovePolicies synchronously requests removal of the given wire
	// IDs on the given link.
	RemovePolicies(link string, ids []WireID) ([]PolicyStatus, error)

	// SetConfirmationHandler registers the single handler for
	// asynchronous confirmation events. Must be called before any
	// submission.
	SetConfirmationHandler(fn ConfirmationHandler)
}

// requestStatusFromSubmit maps a synchronous submit status onto the
// application-visible status code.
func requestStatusFromSubmit(s SubmitStatus) RequestStatus {
	switch s {
	case SubmitSent:
		return StatusTracking
	case SubmitAlreadyActive:
		return StatusAlreadyActive
	case SubmitInvalid:
		return StatusInvalidParameters
	default:
		return StatusFailureUnknown
	}
}
