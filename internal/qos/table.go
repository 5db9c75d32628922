// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import (
	"fmt"
	"io"
	"sort"
)

// policyKey uniquely identifies a tracked policy. Policy IDs are only
// unique per owner, so the owner is part of the key.
type policyKey struct {
	uid      int32
	policyID int
}

// TrackingTable is the canonical registry of tracked policies. It owns
// the bounded wire-ID space and the per-owner bookkeeping. A policy is
// present here if and only if some caller currently owns it.
//
// The table is not safe for concurrent use; the dispatcher only touches
// it from its serialized event loop.
type TrackingTable struct {
	freeWireIDs []WireID
	policies    map[policyKey]*Policy
}

// NewTrackingTable creates a table owning the wire-ID range
// [minWireID, maxWireID].
func NewTrackingTable(minWireID, maxWireID int) *TrackingTable {
	t := &TrackingTable{
		policies: make(map[policyKey]*Policy),
	}
	for id := minWireID; id <= maxWireID; id++ {
		t.freeWireIDs = append(t.freeWireIDs, WireID(id))
	}
	return t
}

// AddPolicies admits a batch of policies for the given owner and
// assigns each accepted policy a wire ID. The returned status list has
// the same length and order as the input. If the table cannot hold the
// whole batch, every policy is rejected with insufficient resources and
// no state changes.
func (t *TrackingTable) AddPolicies(policies []*Policy, uid int32) []RequestStatus {
	if len(t.freeWireIDs) < len(policies) {
		return uniformStatusList(len(policies), StatusInsufficientResources)
	}
	statusList := uniformStatusList(len(policies), StatusTracking)
	for i, policy := range policies {
		key := policyKey{uid: uid, policyID: policy.PolicyID}
		if _, ok := t.policies[key]; ok {
			statusList[i] = StatusAlreadyActive
			continue
		}
		wireID := t.freeWireIDs[0]
		t.freeWireIDs = t.freeWireIDs[1:]
		policy.setWireID(wireID)
		t.policies[key] = policy
	}
	return statusList
}

// RemovePolicies removes the given policy IDs owned by uid, returning
// their wire IDs to the pool. IDs that are not tracked for this owner
// are silently ignored, so removal is idempotent.
func (t *TrackingTable) RemovePolicies(policyIDs []int, uid int32) {
	for _, policyID := range policyIDs {
		key := policyKey{uid: uid, policyID: policyID}
		policy, ok := t.policies[key]
		if !ok {
			continue
		}
		t.freeWireIDs = append(t.freeWireIDs, policy.WireID())
		delete(t.policies, key)
	}
}

// Translate maps owner-scoped policy IDs to their wire IDs. Policy IDs
// that are not tracked for this owner are dropped from the result.
func (t *TrackingTable) Translate(policyIDs []int, uid int32) []WireID {
	var wireIDs []WireID
	for _, policyID := range policyIDs {
		if policy, ok := t.policies[policyKey{uid: uid, policyID: policyID}]; ok {
			wireIDs = append(wireIDs, policy.WireID())
		}
	}
	return wireIDs
}

// OwnedBy returns the policy IDs currently tracked for the given owner.
func (t *TrackingTable) OwnedBy(uid int32) []int {
	var ids []int
	for key := range t.policies {
		if key.uid == uid {
			ids = append(ids, key.policyID)
		}
	}
	sort.Ints(ids)
	return ids
}

// HasOwner reports whether the table holds any policy for the owner.
func (t *TrackingTable) HasOwner(uid int32) bool {
	for key := range t.policies {
		if key.uid == uid {
			return true
		}
	}
	return false
}

// AllPolicies returns every tracked policy, ordered by owner then
// policy ID so replay batches are deterministic.
func (t *TrackingTable) AllPolicies() []*Policy {
	keys := make([]policyKey, 0, len(t.policies))
	for key := range t.policies {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].uid != keys[j].uid {
			return keys[i].uid < keys[j].uid
		}
		return keys[i].policyID < keys[j].policyID
	})
	policies := make([]*Policy, 0, len(keys))
	for _, key := range keys {
		policies = append(policies, t.policies[key])
	}
	return policies
}

// FilterUntracked returns only the policies from the input that are
// still tracked for the given owner, preserving input order.
func (t *TrackingTable) FilterUntracked(policies []*Policy, uid int32) []*Policy {
	var tracked []*Policy
	for _, policy := range policies {
		if _, ok := t.policies[policyKey{uid: uid, policyID: policy.PolicyID}]; ok {
			tracked = append(tracked, policy)
		}
	}
	return tracked
}

// Size returns the number of tracked policies.
func (t *TrackingTable) Size() int { return len(t.policies) }

// Available returns the number of unassigned wire IDs.
func (t *TrackingTable) Available() int { return len(t.freeWireIDs) }

// Dump writes the table contents for operational inspection.
func (t *TrackingTable) Dump(w io.Writer) {
	fmt.Fprintln(w, "Policy tracking table:")
	fmt.Fprintf(w, "  total capacity: %d\n", len(t.freeWireIDs)+len(t.policies))
	fmt.Fprintf(w, "  available wire ids: %d\n", len(t.freeWireIDs))
	fmt.Fprintf(w, "  tracked policies: %d\n", len(t.policies))
	keys := make([]policyKey, 0, len(t.policies))
	for key := range t.policies {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].uid != keys[j].uid {
			return keys[i].uid < keys[j].uid
		}
		return keys[i].policyID < keys[j].policyID
	})
	for _, key := range keys {
		fmt.Fprintf(w, "    uid=%d %s\n", key.uid, t.policies[key])
	}
}
