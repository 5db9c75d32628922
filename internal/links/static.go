// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package links

import "sync"

// StaticRegistry is a Registry with a fixed, manually managed link set.
// The simulator and tests drive it directly.
type StaticRegistry struct {
	mu      sync.Mutex
	links   map[string]struct{}
	onAdded AddedFunc
}

// NewStatic returns a registry pre-populated with the given links.
func NewStatic(names ...string) *StaticRegistry {
	r := &StaticRegistry{links: make(map[string]struct{})}
	for _, name := range names {
		r.links[name] = struct{}{}
	}
	return r
}

// OnAdded registers the callback invoked when a link is added later.
func (r *StaticRegistry) OnAdded(fn AddedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdded = fn
}

// ActiveLinks returns the current link set, sorted.
func (r *StaticRegistry) ActiveLinks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedNames(r.links)
}

// Add makes a link eligible and fires the added callback if the link
// was not already present.
func (r *StaticRegistry) Add(name string) {
	r.mu.Lock()
	if _, ok := r.links[name]; ok {
		r.mu.Unlock()
		return
	}
	r.links[name] = struct{}{}
	fn := r.onAdded
	r.mu.Unlock()
	if fn != nil {
		fn(name)
	}
}

// Remove drops a link from the eligible set.
func (r *StaticRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, name)
}
