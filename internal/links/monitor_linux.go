// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package links

import (
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/airqos/internal/errors"
	"grimm.is/airqos/internal/logging"
)

// Monitor is a Registry backed by the kernel's link table. It seeds the
// eligible set from the links matching the configured patterns that are
// operationally up, then follows netlink updates: a matching link
// reaching oper-up joins the set and fires the added callback, a link
// going down or disappearing leaves it.
type Monitor struct {
	log      *logging.Logger
	patterns []string

	mu      sync.Mutex
	active  map[string]struct{}
	onAdded AddedFunc

	done      chan struct{}
	closeOnce sync.Once
}

// NewMonitor starts watching for link changes. Links already up at
// startup do not fire the callback; the caller reads them from
// ActiveLinks.
func NewMonitor(log *logging.Logger, patterns []string) (*Monitor, error) {
	m := &Monitor{
		log:      log.WithComponent("links"),
		patterns: patterns,
		active:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	linkList, err := netlink.LinkList()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "listing network links")
	}
	for _, link := range linkList {
		attrs := link.Attrs()
		if matchesAny(attrs.Name, patterns) && attrs.OperState == netlink.OperUp {
			m.active[attrs.Name] = struct{}{}
		}
	}
	m.log.Info("Link monitor started", "patterns", patterns, "active", len(m.active))

	updates := make(chan netlink.LinkUpdate, 16)
	if err := netlink.LinkSubscribe(updates, m.done); err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "subscribing to link updates")
	}
	go m.watch(updates)
	return m, nil
}

// OnAdded registers the callback invoked when a link joins the
// eligible set. Events arriving before registration are dropped.
func (m *Monitor) OnAdded(fn AddedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAdded = fn
}

// Close stops the kernel subscription.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// ActiveLinks returns the eligible links, sorted.
func (m *Monitor) ActiveLinks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedNames(m.active)
}

func (m *Monitor) watch(updates chan netlink.LinkUpdate) {
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			m.handleUpdate(update)
		case <-m.done:
			return
		}
	}
}

func (m *Monitor) handleUpdate(update netlink.LinkUpdate) {
	attrs := update.Link.Attrs()
	if !matchesAny(attrs.Name, m.patterns) {
		return
	}

	gone := update.Header.Type == unix.RTM_DELLINK || attrs.OperState != netlink.OperUp

	m.mu.Lock()
	_, present := m.active[attrs.Name]
	switch {
	case gone && present:
		delete(m.active, attrs.Name)
	case !gone && !present:
		m.active[attrs.Name] = struct{}{}
	default:
		m.mu.Unlock()
		return
	}
	fn := m.onAdded
	m.mu.Unlock()

	if gone {
		m.log.Info("Link left the eligible set", "link", attrs.Name)
		return
	}
	m.log.Info("Link joined the eligible set", "link", attrs.Name)
	if fn != nil {
		fn(attrs.Name)
	}
}

// LinkDetails reads link attributes from the kernel, with driver and
// speed information filled in from ethtool when available.
func LinkDetails(name string) (*Details, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "link %s not found", name)
	}
	attrs := link.Attrs()
	details := &Details{
		Name: attrs.Name,
		MAC:  attrs.HardwareAddr.String(),
		MTU:  attrs.MTU,
		Up:   attrs.OperState == netlink.OperUp,
	}
	fillEthtoolDetails(details)
	return details, nil
}
