package flowens

import (
	"math/big"
	"sync"
	"time"

	"github.com/flow-platform/flowens/schema"
)

// Cache holds chain-derived values refreshed by jobs.
type Cache struct {
	gasPrice *big.Int
	minAge   time.Duration
	maxAge   time.Duration
	lock     sync.RWMutex
}

func NewCache() *Cache {
	return &Cache{
		gasPrice: big.NewInt(0),
		minAge:   schema.DefaultMinCommitmentAge,
		maxAge:   schema.DefaultMaxCommitmentAge,
	}
}

func (c *Cache) GetGasPrice() *big.Int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return new(big.Int).Set(c.gasPrice)
}

func (c *Cache) UpdateGasPrice(price *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.gasPrice = new(big.Int).Set(price)
}

func (c *Cache) GetCommitmentAges() (min, max time.Duration) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.minAge, c.maxAge
}

func (c *Cache) UpdateCommitmentAges(min, max time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if min > 0 {
		c.minAge = min
	}
	if max > 0 {
		c.maxAge = max
	}
}
