// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package links tracks the network links eligible to carry QoS-marked
// application traffic. The monitor watches the kernel for links coming
// up and going away; the static registry backs tests and the simulator.
package links

import (
	"path"
	"sort"
)

// Registry enumerates the links currently eligible for policy
// submission.
type Registry interface {
	ActiveLinks() []string
}

// AddedFunc is invoked when a link becomes eligible after the monitor
// started. It is never invoked for links present at startup.
type AddedFunc func(name string)

// Details describes a link for operational inspection.
type Details struct {
	Name    string
	MAC     string
	MTU     int
	Up      bool
	Driver  string
	SpeedMb uint32
}

// matchesAny reports whether the link name matches at least one of the
// configured glob patterns. An empty pattern list matches nothing.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
