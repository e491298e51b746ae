package live

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/store"
)

type recorder struct {
	mu    sync.Mutex
	snaps []string
}

func (r *recorder) fn(data json.RawMessage) {
	r.mu.Lock()
	r.snaps = append(r.snaps, string(data))
	r.mu.Unlock()
}

func (r *recorder) waitFor(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.snaps) > 0 && r.snaps[len(r.snaps)-1] == want
	}, time.Second, time.Millisecond)
}

func TestAcquireSharesOneUnderlyingSubscription(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	m := NewManager(st)

	first := &recorder{}
	h1, err := m.Acquire("posts", "feed", first.fn)
	require.NoError(t, err)
	first.waitFor(t, "null")

	second := &recorder{}
	h2, err := m.Acquire("posts", "feed", second.fn)
	require.NoError(t, err)

	assert.Equal(t, 1, st.SubscriberCount(), "two views, one store listener")
	assert.Equal(t, 1, m.ActiveSubscriptions())

	// The second view is seeded with the last snapshot synchronously.
	second.mu.Lock()
	assert.NotEmpty(t, second.snaps)
	second.mu.Unlock()

	h1.Release()
	assert.Equal(t, 1, st.SubscriberCount(), "listener survives while a view remains")

	h2.Release()
	assert.Equal(t, 0, st.SubscriberCount())
	assert.Equal(t, 0, m.ActiveSubscriptions())
}

func TestDistinctScopesGetDistinctSubscriptions(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	m := NewManager(st)

	h1, err := m.Acquire("messages", "conversations:u1", (&recorder{}).fn)
	require.NoError(t, err)
	h2, err := m.Acquire("messages", "thread:u1:u2", (&recorder{}).fn)
	require.NoError(t, err)

	assert.Equal(t, 2, m.ActiveSubscriptions())
	h1.Release()
	h2.Release()
	assert.Equal(t, 0, m.ActiveSubscriptions())
}

func TestReleaseIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	m := NewManager(st)

	h1, err := m.Acquire("posts", "feed", (&recorder{}).fn)
	require.NoError(t, err)
	h2, err := m.Acquire("posts", "feed", (&recorder{}).fn)
	require.NoError(t, err)

	h1.Release()
	h1.Release()
	assert.Equal(t, 1, m.ActiveSubscriptions(), "double release must not steal the remaining view's listener")
	h2.Release()
	assert.Equal(t, 0, m.ActiveSubscriptions())
}

func TestSnapshotsFanOutToAllHandles(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	m := NewManager(st)

	a, b := &recorder{}, &recorder{}
	h1, err := m.Acquire("posts", "feed", a.fn)
	require.NoError(t, err)
	defer h1.Release()
	h2, err := m.Acquire("posts", "feed", b.fn)
	require.NoError(t, err)
	defer h2.Release()

	require.NoError(t, st.Write(context.Background(), "posts/p1", "x"))
	a.waitFor(t, `{"p1":"x"}`)
	b.waitFor(t, `{"p1":"x"}`)
}

func TestViewCloseDropsLateSnapshots(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	m := NewManager(st)

	var mu sync.Mutex
	calls := 0
	v, err := Watch(m, "posts", "feed", nil, nil, func([]Keyed[struct{ X int }]) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, time.Second, time.Millisecond)

	v.Close()
	v.Close()
	mu.Lock()
	n := calls
	mu.Unlock()

	require.NoError(t, st.Write(context.Background(), "posts/p1", map[string]any{"X": 1}))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, calls, "closed view must not observe further snapshots")
	mu.Unlock()
}
