// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUID int32 = 12345

func makePolicies(startID, count int) []*Policy {
	policies := make([]*Policy, count)
	for i := range policies {
		p := NewPolicy(startID+i, DirectionDownlink)
		p.UserPriority = UserPriorityBestEffortHigh
		p.IPVersion = IPVersion4
		policies[i] = p
	}
	return policies
}

func TestTableAddAssignsWireIDs(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	policies := makePolicies(10, 3)

	statusList := table.AddPolicies(policies, testUID)
	require.Len(t, statusList, 3)
	for _, status := range statusList {
		assert.Equal(t, StatusTracking, status)
	}

	// Wire IDs are handed out from the pool front.
	assert.Equal(t, WireID(WireIDMin), policies[0].WireID())
	assert.Equal(t, WireID(WireIDMin+1), policies[1].WireID())
	assert.Equal(t, WireID(WireIDMin+2), policies[2].WireID())
	assert.Equal(t, 3, table.Size())
}

func TestTableAddDuplicate(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	policies := makePolicies(10, 2)
	table.AddPolicies(policies, testUID)

	statusList := table.AddPolicies(makePolicies(10, 2), testUID)
	assert.Equal(t, []RequestStatus{StatusAlreadyActive, StatusAlreadyActive}, statusList)
	assert.Equal(t, 2, table.Size())
}

func TestTableSamePolicyIDDifferentOwners(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	table.AddPolicies(makePolicies(10, 1), testUID)
	statusList := table.AddPolicies(makePolicies(10, 1), testUID+1)
	assert.Equal(t, []RequestStatus{StatusTracking}, statusList)
	assert.Equal(t, 2, table.Size())
}

func TestTableFull(t *testing.T) {
	table := NewTrackingTable(1, 4)
	statusList := table.AddPolicies(makePolicies(10, 4), testUID)
	for _, status := range statusList {
		require.Equal(t, StatusTracking, status)
	}

	// Rejecting a too-large batch must not mutate the table.
	statusList = table.AddPolicies(makePolicies(100, 2), testUID)
	assert.Equal(t, []RequestStatus{StatusInsufficientResources, StatusInsufficientResources}, statusList)
	assert.Equal(t, 4, table.Size())
	assert.Equal(t, 0, table.Available())
}

func TestTableRemoveRecyclesWireIDs(t *testing.T) {
	table := NewTrackingTable(1, 2)
	table.AddPolicies(makePolicies(10, 2), testUID)
	require.Equal(t, 0, table.Available())

	table.RemovePolicies([]int{10, 11}, testUID)
	assert.Equal(t, 0, table.Size())
	assert.Equal(t, 2, table.Available())

	statusList := table.AddPolicies(makePolicies(20, 2), testUID)
	assert.Equal(t, []RequestStatus{StatusTracking, StatusTracking}, statusList)
}

func TestTableRemoveNotOwnedIsNoop(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	table.AddPolicies(makePolicies(10, 2), testUID)

	table.RemovePolicies([]int{10, 11}, testUID+1)
	assert.Equal(t, 2, table.Size())
	assert.Empty(t, table.Translate([]int{10}, testUID+1))
}

func TestTableTranslateDropsUnknown(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	policies := makePolicies(10, 2)
	table.AddPolicies(policies, testUID)

	wireIDs := table.Translate([]int{10, 11, 99}, testUID)
	assert.Equal(t, []WireID{policies[0].WireID(), policies[1].WireID()}, wireIDs)
}

func TestTableOwnership(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	table.AddPolicies(makePolicies(10, 3), testUID)
	table.AddPolicies(makePolicies(50, 1), testUID+1)

	assert.Equal(t, []int{10, 11, 12}, table.OwnedBy(testUID))
	assert.True(t, table.HasOwner(testUID))
	assert.False(t, table.HasOwner(testUID+2))

	table.RemovePolicies([]int{10, 11, 12}, testUID)
	assert.False(t, table.HasOwner(testUID))
	assert.True(t, table.HasOwner(testUID+1))
}

func TestTableFilterUntracked(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	policies := makePolicies(10, 3)
	table.AddPolicies(policies, testUID)
	table.RemovePolicies([]int{11}, testUID)

	tracked := table.FilterUntracked(policies, testUID)
	require.Len(t, tracked, 2)
	assert.Equal(t, 10, tracked[0].PolicyID)
	assert.Equal(t, 12, tracked[1].PolicyID)
}

func TestTableAllPoliciesOrdered(t *testing.T) {
	table := NewTrackingTable(WireIDMin, WireIDMax)
	table.AddPolicies(makePolicies(30, 2), testUID+1)
	table.AddPolicies(makePolicies(10, 2), testUID)

	all := table.AllPolicies()
	require.Len(t, all, 4)
	assert.Equal(t, 10, all[0].PolicyID)
	assert.Equal(t, 11, all[1].PolicyID)
	assert.Equal(t, 30, all[2].PolicyID)
	assert.Equal(t, 31, all[3].PolicyID)
}

func TestTableDump(t *testing.T) {
	table := NewTrackingTable(1, 10)
	table.AddPolicies(makePolicies(10, 2), testUID)

	var buf bytes.Buffer
	table.Dump(&buf)
	out := buf.String()
	assert.True(t, strings.Contains(out, "tracked policies: 2"), out)
	assert.True(t, strings.Contains(out, "uid=12345"), out)
}
