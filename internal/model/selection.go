package model

// PrimarySlots is the fixed number of primary comp slots per order.
const PrimarySlots = 3

// EmptySlot is the sentinel occupying an unused primary slot.
const EmptySlot = ""

// CompSelection is the per-order selection state: which comps are primary,
// which are locked, and whether the pool is restricted to the market polygon.
// Primary is always exactly PrimarySlots long, padded with EmptySlot, and a
// comp id appears at most once.
type CompSelection struct {
	Primary           []string        `json:"primary"`
	Locked            map[string]bool `json:"locked"`
	RestrictToPolygon bool            `json:"restrict_to_polygon"`
}

// NewCompSelection returns an empty selection with normalized slots.
func NewCompSelection() CompSelection {
	return CompSelection{
		Primary: make([]string, PrimarySlots),
		Locked:  make(map[string]bool),
	}
}

// Normalize pads or truncates Primary to exactly PrimarySlots entries and
// ensures Locked is non-nil. Stored selections pass through here on load so
// the invariants hold regardless of what was persisted.
func (s *CompSelection) Normalize() {
	for len(s.Primary) < PrimarySlots {
		s.Primary = append(s.Primary, EmptySlot)
	}
	if len(s.Primary) > PrimarySlots {
		s.Primary = s.Primary[:PrimarySlots]
	}
	if s.Locked == nil {
		s.Locked = make(map[string]bool)
	}
}

// PrimaryIndex returns the slot holding compID, or -1.
func (s CompSelection) PrimaryIndex(compID string) int {
	for i, id := range s.Primary {
		if id != EmptySlot && id == compID {
			return i
		}
	}
	return -1
}

// IsLocked reports whether compID is in the locked set.
func (s CompSelection) IsLocked(compID string) bool {
	return s.Locked[compID]
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored state.
func (s CompSelection) Clone() CompSelection {
	out := CompSelection{
		Primary:           append([]string(nil), s.Primary...),
		Locked:            make(map[string]bool, len(s.Locked)),
		RestrictToPolygon: s.RestrictToPolygon,
	}
	for id, v := range s.Locked {
		out.Locked[id] = v
	}
	return out
}
