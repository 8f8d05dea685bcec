package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtop/studio-engine/core"
)

func TestDispatch_ListenersSeeCommitsInOrder(t *testing.T) {
	// GIVEN: Two concurrent dispatches where the first one's leading
	//        listener is slow, inviting the second fan-out to overtake it
	// THEN: A last-write-wins listener (the saver's model) must still end
	//       holding the last committed state, never a stale one

	store := newTestStore(core.NewState())

	// Leading listener stalls on the first commit only.
	store.Subscribe(func(st core.State, _ core.Origin) {
		if st.Config.LessonsPerPayment == 101 {
			time.Sleep(80 * time.Millisecond)
		}
	})

	var mu sync.Mutex
	var seen []int
	store.Subscribe(func(st core.State, _ core.Origin) {
		mu.Lock()
		seen = append(seen, st.Config.LessonsPerPayment)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := store.Dispatch(core.UpdateConfig{Config: core.MembershipConfig{LessonsPerPayment: 101}})
		assert.NoError(t, err)
	}()

	// Let the first dispatch commit and enter its stalled fan-out.
	time.Sleep(20 * time.Millisecond)
	_, err := store.Dispatch(core.UpdateConfig{Config: core.MembershipConfig{LessonsPerPayment: 102}})
	require.NoError(t, err)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{101, 102}, seen, "notifications must arrive in commit order")

	final := store.State()
	assert.Equal(t, final.Config.LessonsPerPayment, seen[len(seen)-1],
		"the last notification must match the committed state")
}
