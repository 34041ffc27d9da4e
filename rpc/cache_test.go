package rpc_test

import (
	"testing"
	"time"

	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpc"
	"github.com/DOIDFoundation/validator-rpc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountCache(t *testing.T) {
	cache, err := rpc.NewAccountCache(2)
	require.NoError(t, err)

	assert.True(t, cache.Update(types.AccountInfo{Account: "a", Slot: 5, Lamports: 1}))
	assert.False(t, cache.Update(types.AccountInfo{Account: "a", Slot: 4, Lamports: 2}), "older state is ignored")
	assert.True(t, cache.Update(types.AccountInfo{Account: "a", Slot: 5, Lamports: 3}))
	info, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, uint64(3), info.Lamports)

	cache.Update(types.AccountInfo{Account: "b", Slot: 1})
	cache.Update(types.AccountInfo{Account: "c", Slot: 1})
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("a")
	assert.False(t, ok, "least recently used account is evicted")

	_, err = rpc.NewAccountCache(0)
	assert.Error(t, err)
}

func TestAccountCacheFollow(t *testing.T) {
	cache, err := rpc.NewAccountCache(8)
	require.NoError(t, err)
	feed := &events.FeedOf[types.AccountInfo]{}
	cache.Follow(feed, "cache")
	t.Cleanup(func() { cache.Unfollow(feed, "cache") })

	assert.Equal(t, 1, feed.Send(types.AccountInfo{Account: "a", Slot: 1, Lamports: 10}))
	assert.Eventually(t, func() bool {
		info, ok := cache.Get("a")
		return ok && info.Lamports == 10
	}, time.Second, 10*time.Millisecond)
}
