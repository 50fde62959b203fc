package config

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	ensSchema "github.com/flow-platform/flowens/schema"
)

type Config struct {
	wdb       *Wdb
	scheduler *gocron.Scheduler
	lock      sync.RWMutex

	minCommitmentAge time.Duration
	maxCommitmentAge time.Duration
	watchInterval    time.Duration
	ipRateWhitelist  map[string]struct{}
}

func New(dsn string, useSqlite bool) *Config {
	wdb := NewWdb(dsn, useSqlite)
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	c := &Config{
		wdb:              wdb,
		scheduler:        gocron.NewScheduler(time.UTC),
		minCommitmentAge: ensSchema.DefaultMinCommitmentAge,
		maxCommitmentAge: ensSchema.DefaultMaxCommitmentAge,
		watchInterval:    time.Minute,
		ipRateWhitelist:  make(map[string]struct{}),
	}
	c.updateFlowConfig()
	c.updateIPWhiteList()
	return c
}

func (c *Config) Run() {
	go c.runJobs()
}

func (c *Config) Close() {
	c.scheduler.Stop()
	c.wdb.Close()
}

func (c *Config) GetMinCommitmentAge() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.minCommitmentAge
}

// SetMinCommitmentAge is called when the controller reports its own
// minCommitmentAge; the on-chain value wins over any local setting.
func (c *Config) SetMinCommitmentAge(age time.Duration) {
	if age <= 0 {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.minCommitmentAge = age
}

func (c *Config) GetMaxCommitmentAge() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.maxCommitmentAge
}

// SetMaxCommitmentAge follows the controller's maxCommitmentAge; the
// on-chain value wins over any local setting.
func (c *Config) SetMaxCommitmentAge(age time.Duration) {
	if age <= 0 {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.maxCommitmentAge = age
}

func (c *Config) GetWatchInterval() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.watchInterval
}

func (c *Config) GetIPWhiteList() *map[string]struct{} {
	c.lock.RLock()
	defer c.lock.RUnlock()
	mmap := c.ipRateWhitelist
	return &mmap
}

func (c *Config) runJobs() {
	c.scheduler.Every(5).Minute().SingletonMode().Do(c.updateFlowConfig)
	c.scheduler.Every(5).Minute().SingletonMode().Do(c.updateIPWhiteList)
	c.scheduler.StartAsync()
}

func (c *Config) updateFlowConfig() {
	cfg, err := c.wdb.GetFlowConfig()
	if err != nil {
		log.Error("c.wdb.GetFlowConfig()", "err", err)
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if cfg.MinCommitmentAge > 0 {
		c.minCommitmentAge = time.Duration(cfg.MinCommitmentAge) * time.Second
	}
	if cfg.MaxCommitmentAge > 0 {
		c.maxCommitmentAge = time.Duration(cfg.MaxCommitmentAge) * time.Second
	}
	if cfg.WatchInterval > 0 {
		c.watchInterval = time.Duration(cfg.WatchInterval) * time.Minute
	}
}

func (c *Config) updateIPWhiteList() {
	items, err := c.wdb.GetAllAvailableIpRateWhitelist()
	if err != nil {
		log.Error("c.wdb.GetAllAvailableIpRateWhitelist()", "err", err)
		return
	}
	mmap := make(map[string]struct{})
	for _, it := range items {
		mmap[it.OriginOrIP] = struct{}{}
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ipRateWhitelist = mmap
}
