package tradingctx

import (
	"sync"
	"time"
)

// Cache 持有最近一次成功拉取的快照，供 HTTP 层并发读取。
// Version 在每次写入时递增，调用方可用它作为重算缓存的 key，
// 避免无关刷新反复触发聚合计算。
type Cache struct {
	mu       sync.RWMutex
	snapshot Snapshot
	version  uint64
	loaded   bool
}

// NewCache 构造空缓存。
func NewCache() *Cache {
	return &Cache{}
}

// Store 写入新快照并递增版本。TakenAt 为零时补当前时间。
func (c *Cache) Store(snap Snapshot) {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	c.mu.Lock()
	c.snapshot = snap.Clone()
	c.version++
	c.loaded = true
	c.mu.Unlock()
}

// Load 返回当前快照的拷贝、版本号与是否已有数据。
func (c *Cache) Load() (Snapshot, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone(), c.version, c.loaded
}

// Version 返回当前版本号。
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
