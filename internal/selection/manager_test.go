package selection

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// memStore is an in-memory selection store for tests.
type memStore struct {
	mu   sync.Mutex
	sels map[string]model.CompSelection
}

func newMemStore() *memStore {
	return &memStore{sels: make(map[string]model.CompSelection)}
}

func (s *memStore) GetSelection(_ context.Context, orderID string) (model.CompSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.sels[orderID]; ok {
		return sel.Clone(), nil
	}
	return model.NewCompSelection(), nil
}

func (s *memStore) SaveSelection(_ context.Context, orderID string, sel model.CompSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sels[orderID] = sel.Clone()
	return nil
}

func TestLock_Idempotent(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	sel, err := m.Lock(ctx, "ord-1", "comp-1", true)
	require.NoError(t, err)
	assert.True(t, sel.IsLocked("comp-1"))

	sel, err = m.Lock(ctx, "ord-1", "comp-1", true)
	require.NoError(t, err)
	assert.True(t, sel.IsLocked("comp-1"))

	sel, err = m.Lock(ctx, "ord-1", "comp-1", false)
	require.NoError(t, err)
	assert.False(t, sel.IsLocked("comp-1"))

	// Clearing an absent lock is a no-op, not an error.
	sel, err = m.Lock(ctx, "ord-1", "comp-9", false)
	require.NoError(t, err)
	assert.False(t, sel.IsLocked("comp-9"))
}

func TestSwap_InsertAndCompact(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	sel, err := m.Swap(ctx, "ord-1", "comp-1", 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"comp-1", "", ""}, sel.Primary)

	// Inserting into slot 2 with slot 1 empty compacts to the front.
	sel, err = m.Swap(ctx, "ord-1", "comp-2", 2, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"comp-1", "comp-2", ""}, sel.Primary)
}

func TestSwap_RemovesDuplicateSlot(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	_, err := m.Swap(ctx, "ord-1", "comp-1", 0, false)
	require.NoError(t, err)
	_, err = m.Swap(ctx, "ord-1", "comp-2", 1, false)
	require.NoError(t, err)

	// Moving comp-1 into slot 1 vacates slot 0; compaction shifts comp-1 up.
	sel, err := m.Swap(ctx, "ord-1", "comp-1", 1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"comp-1", "", ""}, sel.Primary)
	assert.Equal(t, 0, sel.PrimaryIndex("comp-1"))
}

func TestSwap_LockedSlotConflict(t *testing.T) {
	store := newMemStore()
	m := NewManager(store)
	ctx := context.Background()

	_, err := m.Swap(ctx, "ord-1", "comp-1", 0, false)
	require.NoError(t, err)
	_, err = m.Lock(ctx, "ord-1", "comp-1", true)
	require.NoError(t, err)

	_, err = m.Swap(ctx, "ord-1", "comp-2", 0, false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLockedSlotConflict))

	// State unchanged after the failed swap.
	sel, err := store.GetSelection(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sel.PrimaryIndex("comp-1"))
	assert.True(t, sel.IsLocked("comp-1"))
	assert.Equal(t, -1, sel.PrimaryIndex("comp-2"))
}

func TestSwap_LockedSlotConfirmed(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	_, err := m.Swap(ctx, "ord-1", "comp-1", 0, false)
	require.NoError(t, err)
	_, err = m.Lock(ctx, "ord-1", "comp-1", true)
	require.NoError(t, err)

	sel, err := m.Swap(ctx, "ord-1", "comp-2", 0, true)
	require.NoError(t, err)
	assert.Equal(t, 0, sel.PrimaryIndex("comp-2"))
	assert.Equal(t, -1, sel.PrimaryIndex("comp-1"))
}

func TestSwap_SlotOutOfRange(t *testing.T) {
	m := NewManager(newMemStore())

	_, err := m.Swap(context.Background(), "ord-1", "comp-1", 3, false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSlotOutOfRange))
}

func TestUpdateSelection_PolygonFlag(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	restrict := true
	sel, err := m.UpdateSelection(ctx, "ord-1", SelectionPatch{RestrictToPolygon: &restrict})
	require.NoError(t, err)
	assert.True(t, sel.RestrictToPolygon)

	// Empty patch leaves the flag alone.
	sel, err = m.UpdateSelection(ctx, "ord-1", SelectionPatch{})
	require.NoError(t, err)
	assert.True(t, sel.RestrictToPolygon)
}

func TestSwap_ConcurrentSameOrder(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := []string{"comp-1", "comp-2", "comp-3"}
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, compID string) {
			defer wg.Done()
			_, err := m.Swap(ctx, "ord-1", compID, slot, false)
			assert.NoError(t, err)
		}(i, id)
	}
	wg.Wait()

	sel, err := m.UpdateSelection(ctx, "ord-1", SelectionPatch{})
	require.NoError(t, err)

	// All three swaps land; no update is lost.
	for _, id := range ids {
		assert.GreaterOrEqual(t, sel.PrimaryIndex(id), 0, "comp %s missing from primaries", id)
	}
}
