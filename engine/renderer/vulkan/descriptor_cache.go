package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Maps a set layout identity to its DescriptorPool, creating pools
 * lazily. One cache instance is shared by a rendering context; acquisition
 * from multiple logical render passes is serialized by an internal mutex
 * since the pool's scan-and-allocate sequence is not atomic.
 */
type DescriptorSetCache struct {
	device Device

	mu    sync.Mutex
	pools map[vk.DescriptorSetLayout]*DescriptorPool
}

func NewDescriptorSetCache(device Device) *DescriptorSetCache {
	return &DescriptorSetCache{
		device: device,
		pools:  make(map[vk.DescriptorSetLayout]*DescriptorPool),
	}
}

// AcquireHandle allocates a descriptor set for the given layout, creating the
// layout's pool on first use.
func (c *DescriptorSetCache) AcquireHandle(layout *SetLayout) (*DescriptorSetHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, ok := c.pools[layout.Handle]
	if !ok {
		pool = NewDescriptorPool(c.device, layout)
		c.pools[layout.Handle] = pool
		core.LogDebug("created descriptor pool for layout of set %d (%d resources)", layout.Set, len(layout.Resources))
	}
	return pool.AllocateDescriptorSet()
}

// PoolCount reports how many per-layout pools exist. Diagnostics only.
func (c *DescriptorSetCache) PoolCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}

// Destroy tears down every pool in the cache.
func (c *DescriptorSetCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pool := range c.pools {
		pool.Destroy()
	}
	c.pools = make(map[vk.DescriptorSetLayout]*DescriptorPool)
}
