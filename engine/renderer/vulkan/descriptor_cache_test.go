package vulkan

import (
	"sync"
	"testing"

	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
)

func TestCacheReusesPoolPerLayout(t *testing.T) {
	device := newFakeDevice()
	cache := NewDescriptorSetCache(device)
	defer cache.Destroy()

	lb := NewLayoutBuilder(device)
	defer lb.Destroy()

	first, err := lb.BuildSetLayout(0, bufferAndSamplers())
	if err != nil {
		t.Fatal(err)
	}
	second, err := lb.BuildSetLayout(1, []reflection.PipelineResource{
		{Name: "material", Type: reflection.ResourceTypeCombinedImageSampler, Binding: 0, ArraySize: 1, Stages: reflection.StageFragment},
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		h, err := cache.AcquireHandle(first)
		if err != nil {
			t.Fatal(err)
		}
		h.Release()
	}
	if cache.PoolCount() != 1 {
		t.Fatalf("repeated acquisition of one layout made %d pools, want 1", cache.PoolCount())
	}

	h, err := cache.AcquireHandle(second)
	if err != nil {
		t.Fatal(err)
	}
	h.Release()
	if cache.PoolCount() != 2 {
		t.Errorf("second layout did not get its own pool: %d pools", cache.PoolCount())
	}
}

func TestCacheConcurrentAcquire(t *testing.T) {
	device := newFakeDevice()
	cache := NewDescriptorSetCache(device)
	defer cache.Destroy()

	lb := NewLayoutBuilder(device)
	defer lb.Destroy()

	layout, err := lb.BuildSetLayout(0, bufferAndSamplers())
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 8
	const perGoroutine = 20

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				h, err := cache.AcquireHandle(layout)
				if err != nil {
					errCh <- err
					return
				}
				h.Release()
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	if cache.PoolCount() != 1 {
		t.Errorf("concurrent acquisition of one layout made %d pools, want 1", cache.PoolCount())
	}
	// 160 allocations at 64 sets per backing pool.
	if device.poolCount() != 3 {
		t.Errorf("%d backing pools for %d allocations, want 3", device.poolCount(), goroutines*perGoroutine)
	}
}

func TestCacheDestroyDropsPools(t *testing.T) {
	device := newFakeDevice()
	cache := NewDescriptorSetCache(device)

	lb := NewLayoutBuilder(device)
	defer lb.Destroy()

	layout, err := lb.BuildSetLayout(0, bufferAndSamplers())
	if err != nil {
		t.Fatal(err)
	}
	h, err := cache.AcquireHandle(layout)
	if err != nil {
		t.Fatal(err)
	}
	h.Release()

	cache.Destroy()
	if cache.PoolCount() != 0 {
		t.Errorf("cache reports %d pools after Destroy", cache.PoolCount())
	}
	if device.poolCount() != 0 {
		t.Errorf("%d backing pools alive after cache Destroy", device.poolCount())
	}
}
