// Package selection manages per-order comp selection state: primary slots,
// locks, and polygon restriction. All mutations for one order are serialized
// through a per-order mutex so concurrent requests cannot lose updates.
package selection

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// ErrLockedSlotConflict signals that a swap would replace a locked primary
// and the caller did not confirm. Recoverable: re-issue with confirm=true or
// cancel.
var ErrLockedSlotConflict = eris.New("selection: target slot holds a locked comp, confirmation required")

// ErrSlotOutOfRange signals a primary slot index outside [0, PrimarySlots).
var ErrSlotOutOfRange = eris.New("selection: primary slot index out of range")

// Store is the persistence boundary for selection state. Implementations
// must return a NotFound-style error only for unknown orders; a known order
// with no saved selection returns an empty normalized selection.
type Store interface {
	GetSelection(ctx context.Context, orderID string) (model.CompSelection, error)
	SaveSelection(ctx context.Context, orderID string, sel model.CompSelection) error
}

// Manager serializes selection mutations per order.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// orderLock returns the mutex guarding one order's selection state.
func (m *Manager) orderLock(orderID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[orderID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[orderID] = l
	}
	return l
}

// withOrder loads, mutates, and saves one order's selection under its lock.
func (m *Manager) withOrder(ctx context.Context, orderID string, fn func(*model.CompSelection) error) (model.CompSelection, error) {
	l := m.orderLock(orderID)
	l.Lock()
	defer l.Unlock()

	sel, err := m.store.GetSelection(ctx, orderID)
	if err != nil {
		return model.CompSelection{}, eris.Wrapf(err, "selection: load order %s", orderID)
	}
	sel.Normalize()

	if err := fn(&sel); err != nil {
		return model.CompSelection{}, err
	}
	sel.Normalize()

	if err := m.store.SaveSelection(ctx, orderID, sel); err != nil {
		return model.CompSelection{}, eris.Wrapf(err, "selection: save order %s", orderID)
	}
	return sel, nil
}

// Lock sets or clears a comp's membership in the locked set. Idempotent.
func (m *Manager) Lock(ctx context.Context, orderID, compID string, locked bool) (model.CompSelection, error) {
	return m.withOrder(ctx, orderID, func(sel *model.CompSelection) error {
		if locked {
			sel.Locked[compID] = true
		} else {
			delete(sel.Locked, compID)
		}
		zap.L().Debug("selection: lock updated",
			zap.String("order_id", orderID),
			zap.String("comp_id", compID),
			zap.Bool("locked", locked),
		)
		return nil
	})
}

// SelectionPatch carries the partial-update fields of UpdateSelection.
type SelectionPatch struct {
	RestrictToPolygon *bool `json:"restrict_to_polygon,omitempty"`
}

// UpdateSelection merges non-slot selection fields.
func (m *Manager) UpdateSelection(ctx context.Context, orderID string, patch SelectionPatch) (model.CompSelection, error) {
	return m.withOrder(ctx, orderID, func(sel *model.CompSelection) error {
		if patch.RestrictToPolygon != nil {
			sel.RestrictToPolygon = *patch.RestrictToPolygon
		}
		return nil
	})
}

// Swap inserts candidateID into the primary slot at targetIndex. If the
// occupant of that slot is locked and confirm is false, the swap fails with
// ErrLockedSlotConflict and no state changes. The candidate is removed from
// any other slot first, and empty slots are compacted to the end.
func (m *Manager) Swap(ctx context.Context, orderID, candidateID string, targetIndex int, confirm bool) (model.CompSelection, error) {
	if targetIndex < 0 || targetIndex >= model.PrimarySlots {
		return model.CompSelection{}, ErrSlotOutOfRange
	}

	return m.withOrder(ctx, orderID, func(sel *model.CompSelection) error {
		occupant := sel.Primary[targetIndex]
		if occupant != model.EmptySlot && occupant != candidateID && sel.IsLocked(occupant) && !confirm {
			return ErrLockedSlotConflict
		}

		// At most one slot per comp id.
		if prev := sel.PrimaryIndex(candidateID); prev >= 0 && prev != targetIndex {
			sel.Primary[prev] = model.EmptySlot
		}
		sel.Primary[targetIndex] = candidateID
		sel.Primary = compactSlots(sel.Primary)

		zap.L().Info("selection: primary swap",
			zap.String("order_id", orderID),
			zap.String("comp_id", candidateID),
			zap.Int("slot", targetIndex),
			zap.String("replaced", occupant),
		)
		return nil
	})
}

// compactSlots moves empty slots to the end, preserving the order of the
// occupied ones, and pads back to PrimarySlots.
func compactSlots(primary []string) []string {
	out := make([]string, 0, model.PrimarySlots)
	for _, id := range primary {
		if id != model.EmptySlot {
			out = append(out, id)
		}
	}
	for len(out) < model.PrimarySlots {
		out = append(out, model.EmptySlot)
	}
	return out
}
