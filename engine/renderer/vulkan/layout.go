package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
)

/**
 * @brief One set's native layout together with the resources it was built
 * from. The resource list is what the DescriptorPool sizes itself on.
 */
type SetLayout struct {
	/** @brief The set index this layout describes. */
	Set uint32
	/** @brief The native layout handle. */
	Handle vk.DescriptorSetLayout
	/** @brief The resources of this set, ordered by binding. */
	Resources []reflection.PipelineResource
}

/**
 * @brief Builds native descriptor set layouts and pipeline layouts from a
 * merged program reflection. The builder owns every handle it creates,
 * including the shared empty layout used to fill set-index gaps.
 */
type LayoutBuilder struct {
	device Device

	emptyLayout    vk.DescriptorSetLayout
	hasEmptyLayout bool

	setLayouts      []vk.DescriptorSetLayout
	pipelineLayouts []vk.PipelineLayout
}

func NewLayoutBuilder(device Device) *LayoutBuilder {
	return &LayoutBuilder{device: device}
}

// BuildSetLayout creates the native layout for one set. Binding indices come
// straight from reflection, the descriptor count is the array size and the
// stage visibility is the merged stage mask.
func (lb *LayoutBuilder) BuildSetLayout(set uint32, resources []reflection.PipelineResource) (*SetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(resources))
	for _, res := range resources {
		if res.Type == reflection.ResourceTypePushConstantBuffer {
			return nil, fmt.Errorf("%w: push constant block %q cannot appear in a set layout", core.ErrLayoutCreation, res.Name)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         res.Binding,
			DescriptorType:  descriptorType(res.Type),
			DescriptorCount: res.ArraySize,
			StageFlags:      vk.ShaderStageFlags(res.Stages),
		})
	}

	handle, err := lb.device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, fmt.Errorf("%w: set %d: %v", core.ErrLayoutCreation, set, err)
	}
	lb.setLayouts = append(lb.setLayouts, handle)

	return &SetLayout{
		Set:       set,
		Handle:    handle,
		Resources: resources,
	}, nil
}

// BuildPipelineLayout creates the set layouts for every active set of the
// reflection and aggregates them, with the reflected push constant ranges,
// into a native pipeline layout. The native API requires a contiguous set
// array, so gaps between active sets are filled with a shared empty layout.
func (lb *LayoutBuilder) BuildPipelineLayout(pr *reflection.ProgramReflection) (vk.PipelineLayout, []*SetLayout, error) {
	activeSets := pr.ActiveSets()

	setLayouts := make([]*SetLayout, 0, len(activeSets))
	var maxSet uint32
	for _, set := range activeSets {
		layout, err := lb.BuildSetLayout(set, pr.ResourcesBySet(set))
		if err != nil {
			return vk.NullPipelineLayout, nil, err
		}
		setLayouts = append(setLayouts, layout)
		if set > maxSet {
			maxSet = set
		}
	}

	var handles []vk.DescriptorSetLayout
	if len(activeSets) > 0 {
		handles = make([]vk.DescriptorSetLayout, maxSet+1)
		for i := range handles {
			empty, err := lb.sharedEmptyLayout()
			if err != nil {
				return vk.NullPipelineLayout, nil, err
			}
			handles[i] = empty
		}
		for _, layout := range setLayouts {
			handles[layout.Set] = layout.Handle
		}
	}

	ranges := []vk.PushConstantRange{}
	for _, res := range pr.ResourcesByType(reflection.ResourceTypePushConstantBuffer) {
		ranges = append(ranges, vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(res.Stages),
			Offset:     res.Offset,
			Size:       res.Size,
		})
	}

	pipelineLayout, err := lb.device.CreatePipelineLayout(handles, ranges)
	if err != nil {
		return vk.NullPipelineLayout, nil, fmt.Errorf("%w: pipeline layout: %v", core.ErrLayoutCreation, err)
	}
	lb.pipelineLayouts = append(lb.pipelineLayouts, pipelineLayout)

	return pipelineLayout, setLayouts, nil
}

// sharedEmptyLayout lazily creates the zero-binding layout used for set-index
// gaps. Created at most once and destroyed with the builder.
func (lb *LayoutBuilder) sharedEmptyLayout() (vk.DescriptorSetLayout, error) {
	if lb.hasEmptyLayout {
		return lb.emptyLayout, nil
	}
	handle, err := lb.device.CreateDescriptorSetLayout(nil)
	if err != nil {
		return vk.NullDescriptorSetLayout, fmt.Errorf("%w: empty layout: %v", core.ErrLayoutCreation, err)
	}
	lb.emptyLayout = handle
	lb.hasEmptyLayout = true
	return handle, nil
}

// Destroy releases every layout the builder created.
func (lb *LayoutBuilder) Destroy() {
	for _, layout := range lb.pipelineLayouts {
		lb.device.DestroyPipelineLayout(layout)
	}
	lb.pipelineLayouts = nil
	for _, layout := range lb.setLayouts {
		lb.device.DestroyDescriptorSetLayout(layout)
	}
	lb.setLayouts = nil
	if lb.hasEmptyLayout {
		lb.device.DestroyDescriptorSetLayout(lb.emptyLayout)
		lb.hasEmptyLayout = false
	}
}

func descriptorType(t reflection.ResourceType) vk.DescriptorType {
	switch t {
	case reflection.ResourceTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case reflection.ResourceTypeDynamicUniformBuffer:
		return vk.DescriptorTypeUniformBufferDynamic
	case reflection.ResourceTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case reflection.ResourceTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case reflection.ResourceTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case reflection.ResourceTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case reflection.ResourceTypeSampler:
		return vk.DescriptorTypeSampler
	case reflection.ResourceTypeInputAttachment:
		return vk.DescriptorTypeInputAttachment
	}
	return vk.DescriptorTypeMaxEnum
}
