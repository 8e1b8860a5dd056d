package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Device is the narrow slice of the native device that the reflection and
// descriptor layer depends on. The production implementation is
// GraphicsDevice; package tests substitute fakes so the pooling and layout
// logic runs without a GPU.
type Device interface {
	CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreatePipelineLayout(setLayouts []vk.DescriptorSetLayout, pushConstantRanges []vk.PushConstantRange) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateDescriptorPool(poolSizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
	CreateShaderModule(code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)
}

/**
 * @brief Wraps the Vulkan physical and logical device.
 */
type GraphicsDevice struct {
	/** @brief The selected physical device. */
	PhysicalDevice vk.PhysicalDevice
	/** @brief The logical device handle. */
	LogicalDevice vk.Device
	/** @brief The graphics queue family index. */
	GraphicsQueueIndex uint32
	/** @brief The graphics queue retrieved from the logical device. */
	GraphicsQueue vk.Queue
	/** @brief The allocation callbacks, nil for the default allocator. */
	Allocator *vk.AllocationCallbacks
}

// NewGraphicsDevice selects a physical device, preferring a discrete GPU with
// a graphics queue, and creates a logical device with a single graphics queue.
func NewGraphicsDevice(instance vk.Instance, validationLayers []string) (*GraphicsDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("failed to count physical devices: %w", err)
	}
	if deviceCount == 0 {
		return nil, fmt.Errorf("no GPU with Vulkan support found")
	}

	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, physicalDevices)); err != nil {
		return nil, fmt.Errorf("failed to enumerate physical devices: %w", err)
	}

	var (
		selected      vk.PhysicalDevice
		selectedQueue uint32
		selectedScore uint32
	)
	for _, pd := range physicalDevices {
		queueIndex, found := findGraphicsQueueFamily(pd)
		if !found {
			continue
		}
		score := deviceScore(pd)
		if score > selectedScore {
			selected = pd
			selectedQueue = queueIndex
			selectedScore = score
		}
	}
	if selectedScore == 0 {
		return nil, fmt.Errorf("no physical device exposes a graphics queue")
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(selected, &properties)
	properties.Deref()
	core.LogInfo("Selected GPU: %s", string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])]))

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: selectedQueue,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	createInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: 1,
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{{}},
	}
	if len(validationLayers) > 0 {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)
	}

	var logicalDevice vk.Device
	if err := vk.Error(vk.CreateDevice(selected, &createInfo, nil, &logicalDevice)); err != nil {
		return nil, fmt.Errorf("failed to create logical device: %w", err)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(logicalDevice, selectedQueue, 0, &queue)

	return &GraphicsDevice{
		PhysicalDevice:     selected,
		LogicalDevice:      logicalDevice,
		GraphicsQueueIndex: selectedQueue,
		GraphicsQueue:      queue,
	}, nil
}

func findGraphicsQueueFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)

	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func deviceScore(pd vk.PhysicalDevice) uint32 {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 100
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 50
	default:
		return 10
	}
}

func (d *GraphicsDevice) CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(d.LogicalDevice, &createInfo, d.Allocator, &layout)); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

func (d *GraphicsDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.LogicalDevice, layout, d.Allocator)
}

func (d *GraphicsDevice) CreatePipelineLayout(setLayouts []vk.DescriptorSetLayout, pushConstantRanges []vk.PushConstantRange) (vk.PipelineLayout, error) {
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushConstantRanges)),
		PPushConstantRanges:    pushConstantRanges,
	}

	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(d.LogicalDevice, &createInfo, d.Allocator, &layout)); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (d *GraphicsDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.LogicalDevice, layout, d.Allocator)
}

func (d *GraphicsDevice) CreateDescriptorPool(poolSizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(d.LogicalDevice, &createInfo, d.Allocator, &pool)); err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func (d *GraphicsDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.LogicalDevice, pool, d.Allocator)
}

func (d *GraphicsDevice) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	var set vk.DescriptorSet
	if err := vk.Error(vk.AllocateDescriptorSets(d.LogicalDevice, &allocateInfo, &set)); err != nil {
		return vk.NullDescriptorSet, err
	}
	return set, nil
}

func (d *GraphicsDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (d *GraphicsDevice) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.LogicalDevice, &createInfo, d.Allocator, &module)); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}

func (d *GraphicsDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.LogicalDevice, module, d.Allocator)
}

// Destroy tears down the logical device. Call after every object created from
// it has been destroyed.
func (d *GraphicsDevice) Destroy() {
	if d.LogicalDevice != nil {
		vk.DeviceWaitIdle(d.LogicalDevice)
		vk.DestroyDevice(d.LogicalDevice, d.Allocator)
		d.LogicalDevice = nil
	}
}
