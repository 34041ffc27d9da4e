package rpc

import (
	"sync"

	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/types"
	lru "github.com/hashicorp/golang-lru"
)

// AccountCache keeps the most recent state seen for a bounded number of
// accounts. It is safe for concurrent use.
type AccountCache struct {
	mu       sync.Mutex // serializes Update
	accounts *lru.Cache
}

func NewAccountCache(size int) (*AccountCache, error) {
	accounts, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &AccountCache{accounts: accounts}, nil
}

// Update stores info unless a state from a later slot is already cached.
func (c *AccountCache) Update(info types.AccountInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.accounts.Peek(info.Account); ok && cached.(types.AccountInfo).Slot > info.Slot {
		return false
	}
	c.accounts.Add(info.Account, info)
	return true
}

func (c *AccountCache) Get(account string) (types.AccountInfo, bool) {
	cached, ok := c.accounts.Get(account)
	if !ok {
		return types.AccountInfo{}, false
	}
	return cached.(types.AccountInfo), true
}

func (c *AccountCache) Len() int {
	return c.accounts.Len()
}

// Follow updates the cache from feed until Unfollow is called with the same
// id.
func (c *AccountCache) Follow(feed *events.FeedOf[types.AccountInfo], id string) {
	feed.Subscribe(id, func(info types.AccountInfo) {
		c.Update(info)
	})
}

func (c *AccountCache) Unfollow(feed *events.FeedOf[types.AccountInfo], id string) {
	feed.Unsubscribe(id).Wait()
}
