package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
)

type fakePipelineLayout struct {
	setLayouts []vk.DescriptorSetLayout
	pushRanges []vk.PushConstantRange
}

type fakeBackingPool struct {
	maxSets   uint32
	allocated uint32
	poolSizes []vk.DescriptorPoolSize
}

// fakeDevice implements Device without touching the driver. Handles are
// minted as fresh allocations (non-dispatchable Vulkan handles are pointer
// types on this platform), so every mint yields a distinct handle.
type fakeDevice struct {
	mu   sync.Mutex
	next uint64
	// handleMem pins every minted allocation: the handle types point to
	// notinheap C types, so the converted pointers alone do not keep the
	// allocations alive (or distinct).
	handleMem []*uint64

	setLayouts      map[vk.DescriptorSetLayout][]vk.DescriptorSetLayoutBinding
	pipelineLayouts map[vk.PipelineLayout]fakePipelineLayout
	pools           map[vk.DescriptorPool]*fakeBackingPool
	modules         map[vk.ShaderModule][]uint32
	writes          []vk.WriteDescriptorSet

	destroyedSetLayouts      int
	destroyedPipelineLayouts int
	destroyedPools           int
	destroyedModules         int

	failSetLayout  bool
	failPoolCreate bool
	failAllocate   bool
	failModule     bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		setLayouts:      make(map[vk.DescriptorSetLayout][]vk.DescriptorSetLayoutBinding),
		pipelineLayouts: make(map[vk.PipelineLayout]fakePipelineLayout),
		pools:           make(map[vk.DescriptorPool]*fakeBackingPool),
		modules:         make(map[vk.ShaderModule][]uint32),
	}
}

func (d *fakeDevice) mint() unsafe.Pointer {
	d.next++
	p := new(uint64)
	*p = d.next
	d.handleMem = append(d.handleMem, p)
	return unsafe.Pointer(p)
}

func (d *fakeDevice) CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSetLayout {
		return vk.NullDescriptorSetLayout, fmt.Errorf("fake: set layout creation refused")
	}
	handle := vk.DescriptorSetLayout(d.mint())
	d.setLayouts[handle] = bindings
	return handle, nil
}

func (d *fakeDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.setLayouts, layout)
	d.destroyedSetLayouts++
}

func (d *fakeDevice) CreatePipelineLayout(setLayouts []vk.DescriptorSetLayout, pushConstantRanges []vk.PushConstantRange) (vk.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	handle := vk.PipelineLayout(d.mint())
	d.pipelineLayouts[handle] = fakePipelineLayout{
		setLayouts: append([]vk.DescriptorSetLayout{}, setLayouts...),
		pushRanges: append([]vk.PushConstantRange{}, pushConstantRanges...),
	}
	return handle, nil
}

func (d *fakeDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelineLayouts, layout)
	d.destroyedPipelineLayouts++
}

func (d *fakeDevice) CreateDescriptorPool(poolSizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failPoolCreate {
		return vk.NullDescriptorPool, fmt.Errorf("fake: pool creation refused")
	}
	handle := vk.DescriptorPool(d.mint())
	d.pools[handle] = &fakeBackingPool{
		maxSets:   maxSets,
		poolSizes: append([]vk.DescriptorPoolSize{}, poolSizes...),
	}
	return handle, nil
}

func (d *fakeDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pools, pool)
	d.destroyedPools++
}

func (d *fakeDevice) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAllocate {
		return vk.NullDescriptorSet, fmt.Errorf("fake: allocation refused")
	}
	backing, ok := d.pools[pool]
	if !ok {
		return vk.NullDescriptorSet, fmt.Errorf("fake: unknown pool")
	}
	if backing.allocated >= backing.maxSets {
		return vk.NullDescriptorSet, fmt.Errorf("fake: pool out of capacity")
	}
	backing.allocated++
	return vk.DescriptorSet(d.mint()), nil
}

func (d *fakeDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, writes...)
}

func (d *fakeDevice) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failModule {
		return vk.NullShaderModule, fmt.Errorf("fake: module creation refused")
	}
	handle := vk.ShaderModule(d.mint())
	d.modules[handle] = code
	return handle, nil
}

func (d *fakeDevice) DestroyShaderModule(module vk.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.modules, module)
	d.destroyedModules++
}

func (d *fakeDevice) poolCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pools)
}
