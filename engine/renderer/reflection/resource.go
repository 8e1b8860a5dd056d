package reflection

import "strings"

/**
 * @brief The kind of a shader-visible resource discovered by reflection.
 */
type ResourceType int

const (
	ResourceTypeUniformBuffer ResourceType = iota
	ResourceTypeDynamicUniformBuffer
	ResourceTypeStorageBuffer
	ResourceTypeCombinedImageSampler
	ResourceTypeSampledImage
	ResourceTypeStorageImage
	ResourceTypeSampler
	ResourceTypeInputAttachment
	ResourceTypePushConstantBuffer
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeUniformBuffer:
		return "UniformBuffer"
	case ResourceTypeDynamicUniformBuffer:
		return "DynamicUniformBuffer"
	case ResourceTypeStorageBuffer:
		return "StorageBuffer"
	case ResourceTypeCombinedImageSampler:
		return "CombinedImageSampler"
	case ResourceTypeSampledImage:
		return "SampledImage"
	case ResourceTypeStorageImage:
		return "StorageImage"
	case ResourceTypeSampler:
		return "Sampler"
	case ResourceTypeInputAttachment:
		return "InputAttachment"
	case ResourceTypePushConstantBuffer:
		return "PushConstantBuffer"
	}
	return "Unknown"
}

/**
 * @brief A bitmask of pipeline stages referencing a resource.
 *
 * The bit values mirror VkShaderStageFlagBits so converting to the native
 * stage mask is a plain cast.
 */
type StageFlags uint32

const (
	StageVertex                 StageFlags = 0x00000001
	StageTessellationControl    StageFlags = 0x00000002
	StageTessellationEvaluation StageFlags = 0x00000004
	StageGeometry               StageFlags = 0x00000008
	StageFragment               StageFlags = 0x00000010
	StageCompute                StageFlags = 0x00000020
)

func (s StageFlags) String() string {
	names := []string{}
	if s&StageVertex != 0 {
		names = append(names, "Vertex")
	}
	if s&StageTessellationControl != 0 {
		names = append(names, "TessellationControl")
	}
	if s&StageTessellationEvaluation != 0 {
		names = append(names, "TessellationEvaluation")
	}
	if s&StageGeometry != 0 {
		names = append(names, "Geometry")
	}
	if s&StageFragment != 0 {
		names = append(names, "Fragment")
	}
	if s&StageCompute != 0 {
		names = append(names, "Compute")
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

/**
 * @brief Describes one shader-visible binding discovered by reflection.
 *
 * Created during the per-stage parse; the merge only ever widens Stages
 * (and Size, for blocks declared with different trailing members per stage).
 * Push constant blocks carry no Set/Binding; their Offset and Size describe
 * the native push constant range instead.
 */
type PipelineResource struct {
	/** @brief The resource name. Unique within a merged program. */
	Name string
	/** @brief The resource kind. */
	Type ResourceType
	/** @brief The descriptor set index. Zero for push constant blocks. */
	Set uint32
	/** @brief The binding index within the set. Zero for push constant blocks. */
	Binding uint32
	/** @brief The number of array elements, 1 for non-arrays. */
	ArraySize uint32
	/** @brief The block size in bytes. Zero for images and samplers. */
	Size uint32
	/** @brief The byte offset of a push constant range. Zero otherwise. */
	Offset uint32
	/** @brief The stages referencing this resource. */
	Stages StageFlags
}

// compatibleWith reports whether two declarations of the same name may be
// merged. A resource must be declared identically in every stage using it.
func (r PipelineResource) compatibleWith(other PipelineResource) bool {
	return r.Type == other.Type &&
		r.Set == other.Set &&
		r.Binding == other.Binding &&
		r.ArraySize == other.ArraySize
}
