package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
)

func testSetLayout(t *testing.T, device Device, resources []reflection.PipelineResource) *SetLayout {
	t.Helper()
	lb := NewLayoutBuilder(device)
	layout, err := lb.BuildSetLayout(0, resources)
	if err != nil {
		t.Fatalf("BuildSetLayout failed: %v", err)
	}
	return layout
}

func bufferAndSamplers() []reflection.PipelineResource {
	return []reflection.PipelineResource{
		{Name: "Camera", Type: reflection.ResourceTypeUniformBuffer, Binding: 0, ArraySize: 1, Size: 64, Stages: reflection.StageVertex},
		{Name: "shadowMaps", Type: reflection.ResourceTypeCombinedImageSampler, Binding: 1, ArraySize: 4, Stages: reflection.StageFragment},
		{Name: "albedo", Type: reflection.ResourceTypeCombinedImageSampler, Binding: 2, ArraySize: 1, Stages: reflection.StageFragment},
	}
}

func TestPoolSizesSumArrayCounts(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))

	want := map[vk.DescriptorType]uint32{
		vk.DescriptorTypeUniformBuffer:        1 * maxSetsPerPool,
		vk.DescriptorTypeCombinedImageSampler: 5 * maxSetsPerPool,
	}
	if len(pool.poolSizes) != len(want) {
		t.Fatalf("got %d pool sizes, want %d: %+v", len(pool.poolSizes), len(want), pool.poolSizes)
	}
	for _, size := range pool.poolSizes {
		if size.DescriptorCount != want[size.Type] {
			t.Errorf("type %d count = %d, want %d", size.Type, size.DescriptorCount, want[size.Type])
		}
	}
}

func TestPoolGrowsLazily(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))
	defer pool.Destroy()

	if device.poolCount() != 0 {
		t.Fatalf("pool created a backing pool before first allocation")
	}

	handles := make([]*DescriptorSetHandle, 0, maxSetsPerPool+1)
	for i := 0; i < maxSetsPerPool; i++ {
		h, err := pool.AllocateDescriptorSet()
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		handles = append(handles, h)
	}
	if device.poolCount() != 1 {
		t.Fatalf("after %d allocations: %d backing pools, want 1", maxSetsPerPool, device.poolCount())
	}

	h, err := pool.AllocateDescriptorSet()
	if err != nil {
		t.Fatalf("allocation past capacity failed: %v", err)
	}
	handles = append(handles, h)
	if device.poolCount() != 2 {
		t.Fatalf("saturating the first pool did not grow: %d backing pools, want 2", device.poolCount())
	}

	seen := make(map[vk.DescriptorSet]struct{}, len(handles))
	for _, h := range handles {
		if _, dup := seen[h.Handle()]; dup {
			t.Fatal("duplicate descriptor set handed out")
		}
		seen[h.Handle()] = struct{}{}
	}
}

func TestReleaseDoesNotReopenSaturatedPool(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))
	defer pool.Destroy()

	for i := 0; i < maxSetsPerPool; i++ {
		h, err := pool.AllocateDescriptorSet()
		if err != nil {
			t.Fatal(err)
		}
		h.Release()
	}

	// All handles were released, but allocation counts only grow; the next
	// allocation must come from a second backing pool.
	if _, err := pool.AllocateDescriptorSet(); err != nil {
		t.Fatal(err)
	}
	if device.poolCount() != 2 {
		t.Errorf("released capacity was reused: %d backing pools, want 2", device.poolCount())
	}
}

func TestReleaseTwiceIsNoOp(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))
	defer pool.Destroy()

	h, err := pool.AllocateDescriptorSet()
	if err != nil {
		t.Fatal(err)
	}
	if h.origin.activeCount != 1 {
		t.Fatalf("active count = %d after allocation, want 1", h.origin.activeCount)
	}
	h.Release()
	if h.origin.activeCount != 0 {
		t.Fatalf("active count = %d after release, want 0", h.origin.activeCount)
	}
	h.Release()
	if h.origin.activeCount != 0 {
		t.Errorf("double release changed active count to %d", h.origin.activeCount)
	}
}

func TestAllocationFailureIsPoolExhaustion(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))
	defer pool.Destroy()

	device.failAllocate = true
	_, err := pool.AllocateDescriptorSet()
	if !errors.Is(err, core.ErrPoolExhaustion) {
		t.Errorf("expected ErrPoolExhaustion, got %v", err)
	}
}

func TestBackingPoolCreationFailureIsNotExhaustion(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))

	device.failPoolCreate = true
	_, err := pool.AllocateDescriptorSet()
	if err == nil {
		t.Fatal("expected error when backing pool creation fails")
	}
	if errors.Is(err, core.ErrPoolExhaustion) {
		t.Errorf("backing pool creation failure misreported as exhaustion: %v", err)
	}
}

func TestPoolDestroyReleasesBackingPools(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))

	for i := 0; i < maxSetsPerPool+1; i++ {
		h, err := pool.AllocateDescriptorSet()
		if err != nil {
			t.Fatal(err)
		}
		h.Release()
	}
	pool.Destroy()

	if device.poolCount() != 0 {
		t.Errorf("%d backing pools alive after Destroy", device.poolCount())
	}
	if device.destroyedPools != 2 {
		t.Errorf("destroyed %d backing pools, want 2", device.destroyedPools)
	}
}

func TestHandleWritesTargetOwnSet(t *testing.T) {
	device := newFakeDevice()
	pool := NewDescriptorPool(device, testSetLayout(t, device, bufferAndSamplers()))
	defer pool.Destroy()

	h, err := pool.AllocateDescriptorSet()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	h.BindUniformBuffer(0, vk.Buffer(device.mint()), 0, 0)
	h.BindCombinedImageSampler(2, vk.ImageView(device.mint()), vk.Sampler(device.mint()))

	if len(device.writes) != 2 {
		t.Fatalf("recorded %d writes, want 2", len(device.writes))
	}
	for _, w := range device.writes {
		if w.DstSet != h.Handle() {
			t.Errorf("write targets set %v, want %v", w.DstSet, h.Handle())
		}
	}
	if device.writes[0].DescriptorType != vk.DescriptorTypeUniformBuffer {
		t.Errorf("first write type = %d, want uniform buffer", device.writes[0].DescriptorType)
	}
	if device.writes[0].PBufferInfo[0].Range != vk.DeviceSize(vk.WholeSize) {
		t.Errorf("zero size did not expand to whole-buffer range")
	}
	if device.writes[1].DstBinding != 2 {
		t.Errorf("second write binding = %d, want 2", device.writes[1].DstBinding)
	}
}
