package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief A single-owner wrapper around one allocated descriptor set.
 *
 * The holder must call Release exactly once when done; the handle then
 * returns to its origin pool's accounting. The native set is not freed
 * individually, it becomes reusable when the whole pool is destroyed.
 */
type DescriptorSetHandle struct {
	device   Device
	set      vk.DescriptorSet
	origin   *poolEntry
	released bool
}

// Handle returns the native descriptor set for command recording.
func (h *DescriptorSetHandle) Handle() vk.DescriptorSet {
	return h.set
}

// Release returns the handle to its origin pool's accounting. Releasing twice
// is a logged no-op.
func (h *DescriptorSetHandle) Release() {
	if h.released {
		core.LogWarn("descriptor set handle released twice")
		return
	}
	h.released = true
	if h.origin.activeCount > 0 {
		h.origin.activeCount--
	}
}

// BindUniformBuffer points a uniform buffer binding of this set at the given
// buffer range. A size of 0 binds the whole buffer.
func (h *DescriptorSetHandle) BindUniformBuffer(binding uint32, buffer vk.Buffer, offset, size vk.DeviceSize) {
	h.writeBuffer(binding, vk.DescriptorTypeUniformBuffer, buffer, offset, size)
}

// BindDynamicUniformBuffer binds a dynamically-offset uniform buffer. The
// actual offset is supplied at bind time by the command recording code.
func (h *DescriptorSetHandle) BindDynamicUniformBuffer(binding uint32, buffer vk.Buffer, offset, size vk.DeviceSize) {
	h.writeBuffer(binding, vk.DescriptorTypeUniformBufferDynamic, buffer, offset, size)
}

// BindStorageBuffer points a storage buffer binding of this set at the given
// buffer range.
func (h *DescriptorSetHandle) BindStorageBuffer(binding uint32, buffer vk.Buffer, offset, size vk.DeviceSize) {
	h.writeBuffer(binding, vk.DescriptorTypeStorageBuffer, buffer, offset, size)
}

func (h *DescriptorSetHandle) writeBuffer(binding uint32, t vk.DescriptorType, buffer vk.Buffer, offset, size vk.DeviceSize) {
	if size == 0 {
		size = vk.DeviceSize(vk.WholeSize)
	}
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer,
		Offset: offset,
		Range:  size,
	}

	h.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  t,
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}})
}

// BindCombinedImageSampler points a combined image sampler binding at the
// given view and sampler, in shader-read-only layout.
func (h *DescriptorSetHandle) BindCombinedImageSampler(binding uint32, view vk.ImageView, sampler vk.Sampler) {
	h.writeImage(binding, vk.DescriptorTypeCombinedImageSampler, vk.ImageLayoutShaderReadOnlyOptimal, view, sampler)
}

// BindStorageImage points a storage image binding at the given view, in
// general layout.
func (h *DescriptorSetHandle) BindStorageImage(binding uint32, view vk.ImageView) {
	h.writeImage(binding, vk.DescriptorTypeStorageImage, vk.ImageLayoutGeneral, view, vk.NullSampler)
}

func (h *DescriptorSetHandle) writeImage(binding uint32, t vk.DescriptorType, layout vk.ImageLayout, view vk.ImageView, sampler vk.Sampler) {
	imageInfo := vk.DescriptorImageInfo{
		ImageLayout: layout,
		ImageView:   view,
		Sampler:     sampler,
	}

	h.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  t,
		DescriptorCount: 1,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}})
}
