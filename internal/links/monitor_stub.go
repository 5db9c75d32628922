// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package links

import (
	"grimm.is/airqos/internal/errors"
	"grimm.is/airqos/internal/logging"
)

// Monitor is not available off Linux (Stub).
type Monitor struct{}

// NewMonitor reports that kernel link monitoring is unsupported (Stub).
func NewMonitor(log *logging.Logger, patterns []string) (*Monitor, error) {
	return nil, errors.New(errors.KindUnavailable, "link monitoring requires linux")
}

// OnAdded is a no-op (Stub).
func (m *Monitor) OnAdded(fn AddedFunc) {}

// Close is a no-op (Stub).
func (m *Monitor) Close() {}

// ActiveLinks returns no links (Stub).
func (m *Monitor) ActiveLinks() []string { return nil }

// LinkDetails is not available off Linux (Stub).
func LinkDetails(name string) (*Details, error) {
	return nil, errors.New(errors.KindUnavailable, "link details require linux")
}
