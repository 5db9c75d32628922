// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		patterns []string
		want     bool
	}{
		{"exact", "wlan0", []string{"wlan0"}, true},
		{"glob", "wlan1", []string{"wlan*"}, true},
		{"second pattern", "ap0", []string{"wlan*", "ap*"}, true},
		{"no match", "eth0", []string{"wlan*"}, false},
		{"empty patterns", "wlan0", nil, false},
		{"bad pattern skipped", "wlan0", []string{"[", "wlan*"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesAny(tt.link, tt.patterns))
		})
	}
}

func TestStaticRegistry(t *testing.T) {
	r := NewStatic("wlan1", "wlan0")
	assert.Equal(t, []string{"wlan0", "wlan1"}, r.ActiveLinks())

	var added []string
	r.OnAdded(func(name string) { added = append(added, name) })

	r.Add("wlan2")
	assert.Equal(t, []string{"wlan0", "wlan1", "wlan2"}, r.ActiveLinks())
	assert.Equal(t, []string{"wlan2"}, added)

	// Re-adding an existing link does not fire the callback.
	r.Add("wlan2")
	assert.Len(t, added, 1)

	r.Remove("wlan0")
	r.Remove("missing")
	assert.Equal(t, []string{"wlan1", "wlan2"}, r.ActiveLinks())
}
