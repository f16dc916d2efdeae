package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore_LatestWins(t *testing.T) {
	store := NewSessionStore(10, time.Hour)
	ctx := context.Background()

	_, ok := store.Get(ctx, "s1")
	assert.False(t, ok)

	store.Put(ctx, "s1", "V1")
	store.Put(ctx, "s1", "V2")
	got, ok := store.Get(ctx, "s1")
	assert.True(t, ok)
	assert.Equal(t, "V2", got)

	store.Put(ctx, "", "V3")
	store.Put(ctx, "s2", "")
	_, ok = store.Get(ctx, "s2")
	assert.False(t, ok)
}

func TestSessionStore_Bounded(t *testing.T) {
	store := NewSessionStore(2, time.Hour)
	ctx := context.Background()

	store.Put(ctx, "a", "1")
	store.Put(ctx, "b", "2")
	store.Put(ctx, "c", "3")

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok, "oldest evicted")
	got, _ := store.Get(ctx, "c")
	assert.Equal(t, "3", got)
}

func TestIdentityMemo_Expires(t *testing.T) {
	memo := NewIdentityMemo(10, 20*time.Millisecond)

	assert.False(t, memo.Seen("U1"))
	memo.Mark("U1")
	assert.True(t, memo.Seen("U1"))

	assert.Eventually(t, func() bool { return !memo.Seen("U1") }, time.Second, 5*time.Millisecond)
}
