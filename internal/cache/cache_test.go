package cache

import (
	"context"
	"testing"
	"time"

	"dailyowo/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLRU[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestLRU[string](4, time.Minute)
	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clock := newTestLRU[int](4, time.Minute)
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestLRUCache_DisabledStoresNothing(t *testing.T) {
	c, _ := newTestLRU[int](0, time.Minute)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_Stats(t *testing.T) {
	c, _ := newTestLRU[int](4, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("b")
	c.Delete("a")
	c.Get("a")

	assert.Equal(t, Stats{Size: 0, Hits: 1, Misses: 2}, c.Stats())
}

func TestManager_SweepAndStop(t *testing.T) {
	c, clock := newTestLRU[int](4, time.Minute)
	c.Set("a", 1)
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(context.Background(), time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup")
	}
}

func snapshotFixture() (*core.Budget, []core.Transaction) {
	b := &core.Budget{
		ID:     "b1",
		UserID: "u1",
		Period: &core.BudgetPeriod{
			StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
			Frequency: core.Monthly,
		},
		Categories: []core.BudgetCategory{{ID: "food", Type: core.CategoryFood, Allocated: 500}},
	}
	txs := []core.Transaction{{ID: "t1", UserID: "u1", Type: core.Expense, Amount: 20, CategoryID: "food"}}
	return b, txs
}

func TestSnapshotKey_ChangesWithInputs(t *testing.T) {
	b, txs := snapshotFixture()
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	k1, err := SnapshotKey(b, txs, asOf)
	require.NoError(t, err)
	k2, err := SnapshotKey(b, txs, asOf)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := SnapshotKey(b, txs, asOf.Add(time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	changed := append([]core.Transaction(nil), txs...)
	changed[0].Amount = 21
	k4, err := SnapshotKey(b, changed, asOf)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)

	b2 := *b
	b2.Categories = []core.BudgetCategory{{ID: "food", Type: core.CategoryFood, Allocated: 600}}
	k5, err := SnapshotKey(&b2, txs, asOf)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k5)
}

func TestSnapshotCache_ReturnsIsolatedCopies(t *testing.T) {
	c := NewSnapshotCache(8, time.Minute)
	data := core.BudgetData{
		Categories: []core.BudgetCategory{{ID: "food", TransactionCategories: []string{"groceries"}}},
		Alerts:     []core.BudgetAlert{},
	}
	c.Set("k", data)

	got, ok := c.Get("k")
	require.True(t, ok)
	got.Categories[0].TransactionCategories[0] = "mutated"
	got.Categories[0].Spent = 99

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "groceries", again.Categories[0].TransactionCategories[0])
	assert.Zero(t, again.Categories[0].Spent)
	assert.NotNil(t, again.Alerts)
}

func TestSnapshotCache_DeleteAndStats(t *testing.T) {
	var c Cache[core.BudgetData] = NewSnapshotCache(8, time.Minute)
	c.Set("k", core.BudgetData{BudgetID: "b1"})
	require.Equal(t, 1, c.Size())

	_, ok := c.Get("k")
	require.True(t, ok)
	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Size())

	stats := c.(*SnapshotCache).Stats()
	assert.Equal(t, Stats{Size: 0, Hits: 1, Misses: 1}, stats)
}
