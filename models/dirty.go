package models

import "sort"

// DirtyTracker records the fields that changed after tracking was switched on.
// New entities track from construction; hydrated entities switch tracking on
// once their stored state has been assigned.
type DirtyTracker struct {
	tracking bool
	dirty    map[string]struct{}
}

func (d *DirtyTracker) markDirty(field string) {
	if !d.tracking {
		return
	}
	if d.dirty == nil {
		d.dirty = make(map[string]struct{})
	}
	d.dirty[field] = struct{}{}
}

func (d *DirtyTracker) enableTracking() {
	d.tracking = true
}

// IsTracking reports whether field changes are being recorded.
func (d *DirtyTracker) IsTracking() bool {
	return d.tracking
}

// IsDirty reports whether any field changed.
func (d *DirtyTracker) IsDirty() bool {
	return len(d.dirty) > 0
}

// IsPropertyDirty reports whether the named field changed.
func (d *DirtyTracker) IsPropertyDirty(field string) bool {
	_, ok := d.dirty[field]
	return ok
}

// DirtyProperties returns the changed field names in lexical order.
func (d *DirtyTracker) DirtyProperties() []string {
	out := make([]string, 0, len(d.dirty))
	for k := range d.dirty {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ResetDirtyProperties clears the recorded changes. Tracking stays enabled.
func (d *DirtyTracker) ResetDirtyProperties() {
	d.dirty = nil
}

func (d DirtyTracker) clone() DirtyTracker {
	out := DirtyTracker{tracking: d.tracking}
	if len(d.dirty) > 0 {
		out.dirty = make(map[string]struct{}, len(d.dirty))
		for k := range d.dirty {
			out.dirty[k] = struct{}{}
		}
	}
	return out
}
