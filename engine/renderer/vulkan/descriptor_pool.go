package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// maxSetsPerPool is the fixed capacity of one backing vk.DescriptorPool.
const maxSetsPerPool = 64

/**
 * @brief One backing native pool and its allocation accounting.
 *
 * allocationCount only ever grows; a saturated entry is retired from
 * consideration for new allocations. activeCount tracks handles not yet
 * released and is bookkeeping only: individual sets are never freed back to
 * the driver, capacity is reclaimed when the whole DescriptorPool dies.
 */
type poolEntry struct {
	handle          vk.DescriptorPool
	allocationCount uint32
	activeCount     uint32
}

/**
 * @brief Allocates and recycles descriptor set handles for exactly one set
 * layout, hiding the capacity-bounded nature of the backing native pools.
 *
 * Backing pools are created lazily whenever every existing one is saturated
 * and live until the DescriptorPool itself is destroyed. Access is expected
 * from a single render thread; the DescriptorSetCache serializes around it.
 */
type DescriptorPool struct {
	device    Device
	layout    *SetLayout
	poolSizes []vk.DescriptorPoolSize
	entries   []*poolEntry
}

// NewDescriptorPool prepares a pool for the given set layout. The native pool
// sizes are computed once: one entry per distinct descriptor type, counting
// the summed array sizes across the set's resources times the pool capacity.
func NewDescriptorPool(device Device, layout *SetLayout) *DescriptorPool {
	descriptorCounts := map[vk.DescriptorType]uint32{}
	for _, res := range layout.Resources {
		descriptorCounts[descriptorType(res.Type)] += res.ArraySize
	}

	poolSizes := make([]vk.DescriptorPoolSize, 0, len(descriptorCounts))
	for _, res := range layout.Resources {
		t := descriptorType(res.Type)
		count, pending := descriptorCounts[t]
		if !pending {
			continue
		}
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: count * maxSetsPerPool,
		})
		delete(descriptorCounts, t)
	}

	return &DescriptorPool{
		device:    device,
		layout:    layout,
		poolSizes: poolSizes,
	}
}

// AllocateDescriptorSet returns a handle to a fresh descriptor set, creating
// a new backing pool when every existing one is saturated. A native
// allocation failure despite counted capacity signals a device-level resource
// ceiling and is surfaced, not retried.
func (dp *DescriptorPool) AllocateDescriptorSet() (*DescriptorSetHandle, error) {
	var entry *poolEntry
	for _, e := range dp.entries {
		if e.allocationCount < maxSetsPerPool {
			entry = e
			break
		}
	}

	if entry == nil {
		handle, err := dp.device.CreateDescriptorPool(dp.poolSizes, maxSetsPerPool)
		if err != nil {
			return nil, fmt.Errorf("failed to create backing descriptor pool for set %d: %w", dp.layout.Set, err)
		}
		entry = &poolEntry{handle: handle}
		dp.entries = append(dp.entries, entry)
		core.LogDebug("created backing descriptor pool %d for set %d", len(dp.entries), dp.layout.Set)
	}

	set, err := dp.device.AllocateDescriptorSet(entry.handle, dp.layout.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: set %d: %v", core.ErrPoolExhaustion, dp.layout.Set, err)
	}
	entry.allocationCount++
	entry.activeCount++

	return &DescriptorSetHandle{
		device: dp.device,
		set:    set,
		origin: entry,
	}, nil
}

// Destroy tears down every backing pool, implicitly reclaiming all sets ever
// allocated from them.
func (dp *DescriptorPool) Destroy() {
	for _, entry := range dp.entries {
		if entry.activeCount > 0 {
			core.LogWarn("destroying descriptor pool for set %d with %d handles still active", dp.layout.Set, entry.activeCount)
		}
		dp.device.DestroyDescriptorPool(entry.handle)
	}
	dp.entries = nil
}
