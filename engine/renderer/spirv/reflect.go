package spirv

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
)

/**
 * @brief Per-stage information recovered alongside the resource list.
 */
type StageMetadata struct {
	/** @brief The entry point name, usually "main". */
	EntryPoint string
	/** @brief The stage the module was compiled for. */
	Stage reflection.StageFlags
	/** @brief The local work-group size. Compute stages only, zero otherwise. */
	LocalSize [3]uint32
}

var modelStages = map[ExecutionModel]reflection.StageFlags{
	ExecutionModelVertex:                 reflection.StageVertex,
	ExecutionModelTessellationControl:    reflection.StageTessellationControl,
	ExecutionModelTessellationEvaluation: reflection.StageTessellationEvaluation,
	ExecutionModelGeometry:               reflection.StageGeometry,
	ExecutionModelFragment:               reflection.StageFragment,
	ExecutionModelGLCompute:              reflection.StageCompute,
}

// Reflect parses one compiled shader stage and returns its declared resources
// plus stage metadata. Uniform buffers whose name appears in dynamicBuffers
// are reported as dynamic uniform buffers; this is a caller-side override, not
// something inferred from the binary. Reflect is a pure function over its
// inputs.
func Reflect(code []uint32, stage reflection.StageFlags, dynamicBuffers map[string]struct{}) ([]reflection.PipelineResource, *StageMetadata, error) {
	m, err := parse(code)
	if err != nil {
		return nil, nil, err
	}

	if !m.hasEntry {
		return nil, nil, fmt.Errorf("%w: module has no entry point", core.ErrReflection)
	}
	entryStage, ok := modelStages[m.entryModel]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported execution model %d", core.ErrReflection, m.entryModel)
	}
	if entryStage != stage {
		return nil, nil, fmt.Errorf("%w: module compiled for %s, expected %s",
			core.ErrReflection, entryStage, stage)
	}

	resources := []reflection.PipelineResource{}
	for _, v := range m.variables {
		switch v.storage {
		case StorageClassUniform, StorageClassUniformConstant,
			StorageClassStorageBuffer, StorageClassPushConstant:
		default:
			// Inputs, outputs and function locals are not bindable resources.
			continue
		}

		res, err := m.classify(v, stage, dynamicBuffers)
		if err != nil {
			return nil, nil, err
		}
		resources = append(resources, res)
	}

	meta := &StageMetadata{
		EntryPoint: m.entryName,
		Stage:      stage,
		LocalSize:  m.localSize,
	}
	return resources, meta, nil
}

// classify turns one global variable into a PipelineResource.
func (m *module) classify(v variable, stage reflection.StageFlags, dynamicBuffers map[string]struct{}) (reflection.PipelineResource, error) {
	ptr, ok := m.types[v.typeID]
	if !ok || ptr.op != OpTypePointer {
		return reflection.PipelineResource{}, fmt.Errorf("%w: variable %%%d has no pointer type", core.ErrReflection, v.id)
	}

	// Descriptor arrays are declared as pointers to arrays of the resource
	// type; unwrap one level and remember the element count.
	innerID := ptr.elem
	arraySize := uint32(1)
	if inner, ok := m.types[innerID]; ok && inner.op == OpTypeArray {
		length, ok := m.constants[inner.lengthID]
		if !ok || length == 0 {
			return reflection.PipelineResource{}, fmt.Errorf("%w: variable %%%d has non-constant array size", core.ErrReflection, v.id)
		}
		arraySize = length
		innerID = inner.elem
	}
	inner, ok := m.types[innerID]
	if !ok {
		return reflection.PipelineResource{}, fmt.Errorf("%w: variable %%%d references unknown type %%%d", core.ErrReflection, v.id, innerID)
	}

	// GLSL names the block type, not the variable, for interface blocks.
	name := m.names[v.id]
	if name == "" {
		name = m.names[innerID]
	}
	if name == "" {
		name = fmt.Sprintf("resource_%d", v.id)
	}

	res := reflection.PipelineResource{
		Name:      name,
		ArraySize: arraySize,
		Stages:    stage,
	}

	switch v.storage {
	case StorageClassPushConstant:
		res.Type = reflection.ResourceTypePushConstantBuffer
		res.Size = m.sizeOf(innerID)
		return res, nil

	case StorageClassUniform:
		// Legacy SPIR-V marks SSBOs as Uniform + BufferBlock.
		if _, buffer := m.decoration(innerID, DecorationBufferBlock); buffer {
			res.Type = reflection.ResourceTypeStorageBuffer
		} else {
			res.Type = reflection.ResourceTypeUniformBuffer
			if _, dynamic := dynamicBuffers[name]; dynamic {
				res.Type = reflection.ResourceTypeDynamicUniformBuffer
			}
		}
		res.Size = m.sizeOf(innerID)

	case StorageClassStorageBuffer:
		res.Type = reflection.ResourceTypeStorageBuffer
		res.Size = m.sizeOf(innerID)

	case StorageClassUniformConstant:
		switch inner.op {
		case OpTypeSampledImage:
			res.Type = reflection.ResourceTypeCombinedImageSampler
		case OpTypeSampler:
			res.Type = reflection.ResourceTypeSampler
		case OpTypeImage:
			switch {
			case inner.dim == DimSubpassData:
				res.Type = reflection.ResourceTypeInputAttachment
			case inner.sampled == 2:
				res.Type = reflection.ResourceTypeStorageImage
			default:
				res.Type = reflection.ResourceTypeSampledImage
			}
		default:
			return reflection.PipelineResource{}, fmt.Errorf("%w: %q has unsupported opaque type (op %d)",
				core.ErrReflection, name, inner.op)
		}
	}

	if set, ok := m.decoration(v.id, DecorationDescriptorSet); ok {
		res.Set = set
	}
	if binding, ok := m.decoration(v.id, DecorationBinding); ok {
		res.Binding = binding
	}
	return res, nil
}

type typeInfo struct {
	op OpCode
	// Bit width for ints and floats.
	width uint32
	// Component, column, element or pointee type id.
	elem uint32
	// Vector size or matrix column count.
	count uint32
	// Constant id holding an array length.
	lengthID uint32
	// Image properties.
	dim     Dim
	sampled uint32
	// Struct member type ids.
	members []uint32
	// Pointer storage class.
	storage StorageClass
}

type variable struct {
	id      uint32
	typeID  uint32
	storage StorageClass
}

type module struct {
	names         map[uint32]string
	decorations   map[uint32]map[Decoration]uint32
	memberOffsets map[uint32]map[uint32]uint32
	types         map[uint32]typeInfo
	constants     map[uint32]uint32
	variables     []variable

	hasEntry   bool
	entryModel ExecutionModel
	entryName  string
	localSize  [3]uint32
}

// parse runs a single pass over the instruction stream, collecting only what
// reflection needs and skipping everything else.
func parse(code []uint32) (*module, error) {
	if len(code) < headerWords {
		return nil, fmt.Errorf("%w: binary truncated (%d words)", core.ErrReflection, len(code))
	}
	if code[0] != MagicNumber {
		return nil, fmt.Errorf("%w: bad magic number 0x%08x", core.ErrReflection, code[0])
	}

	m := &module{
		names:         make(map[uint32]string),
		decorations:   make(map[uint32]map[Decoration]uint32),
		memberOffsets: make(map[uint32]map[uint32]uint32),
		types:         make(map[uint32]typeInfo),
		constants:     make(map[uint32]uint32),
	}

	for idx := headerWords; idx < len(code); {
		wordCount := int(code[idx] >> 16)
		op := OpCode(code[idx] & 0xffff)
		if wordCount == 0 || idx+wordCount > len(code) {
			return nil, fmt.Errorf("%w: malformed instruction at word %d", core.ErrReflection, idx)
		}
		operands := code[idx+1 : idx+wordCount]

		if err := m.decode(op, operands); err != nil {
			return nil, err
		}
		idx += wordCount
	}
	return m, nil
}

func (m *module) decode(op OpCode, operands []uint32) error {
	short := func(n int) error {
		if len(operands) < n {
			return fmt.Errorf("%w: op %d has %d operands, need %d", core.ErrReflection, op, len(operands), n)
		}
		return nil
	}

	switch op {
	case OpName:
		if err := short(2); err != nil {
			return err
		}
		name, _ := decodeString(operands[1:])
		m.names[operands[0]] = name

	case OpEntryPoint:
		if err := short(3); err != nil {
			return err
		}
		// Only the first entry point is considered; glslang emits exactly one.
		if !m.hasEntry {
			m.hasEntry = true
			m.entryModel = ExecutionModel(operands[0])
			m.entryName, _ = decodeString(operands[2:])
		}

	case OpExecutionMode:
		if err := short(2); err != nil {
			return err
		}
		if ExecutionMode(operands[1]) == ExecutionModeLocalSize {
			if err := short(5); err != nil {
				return err
			}
			m.localSize = [3]uint32{operands[2], operands[3], operands[4]}
		}

	case OpDecorate:
		if err := short(2); err != nil {
			return err
		}
		target := operands[0]
		decoration := Decoration(operands[1])
		var value uint32
		if len(operands) > 2 {
			value = operands[2]
		}
		if m.decorations[target] == nil {
			m.decorations[target] = make(map[Decoration]uint32)
		}
		m.decorations[target][decoration] = value

	case OpMemberDecorate:
		if err := short(3); err != nil {
			return err
		}
		if Decoration(operands[2]) == DecorationOffset {
			if err := short(4); err != nil {
				return err
			}
			structID, member := operands[0], operands[1]
			if m.memberOffsets[structID] == nil {
				m.memberOffsets[structID] = make(map[uint32]uint32)
			}
			m.memberOffsets[structID][member] = operands[3]
		}

	case OpTypeBool:
		if err := short(1); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op}

	case OpTypeInt, OpTypeFloat:
		if err := short(2); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, width: operands[1]}

	case OpTypeVector, OpTypeMatrix:
		if err := short(3); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, elem: operands[1], count: operands[2]}

	case OpTypeImage:
		if err := short(8); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, elem: operands[1], dim: Dim(operands[2]), sampled: operands[6]}

	case OpTypeSampler:
		if err := short(1); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op}

	case OpTypeSampledImage:
		if err := short(2); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, elem: operands[1]}

	case OpTypeArray:
		if err := short(3); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, elem: operands[1], lengthID: operands[2]}

	case OpTypeRuntimeArray:
		if err := short(2); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, elem: operands[1]}

	case OpTypeStruct:
		if err := short(1); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, members: append([]uint32{}, operands[1:]...)}

	case OpTypePointer:
		if err := short(3); err != nil {
			return err
		}
		m.types[operands[0]] = typeInfo{op: op, storage: StorageClass(operands[1]), elem: operands[2]}

	case OpConstant:
		if err := short(3); err != nil {
			return err
		}
		// Only the low word matters for the array lengths we resolve.
		m.constants[operands[1]] = operands[2]

	case OpVariable:
		if err := short(3); err != nil {
			return err
		}
		m.variables = append(m.variables, variable{
			id:      operands[1],
			typeID:  operands[0],
			storage: StorageClass(operands[2]),
		})
	}
	return nil
}

func (m *module) decoration(id uint32, d Decoration) (uint32, bool) {
	value, ok := m.decorations[id][d]
	return value, ok
}

// sizeOf computes the byte size of a block type from its member offsets and
// array strides. Runtime arrays contribute nothing; they are unsized tails.
func (m *module) sizeOf(id uint32) uint32 {
	t, ok := m.types[id]
	if !ok {
		return 0
	}
	switch t.op {
	case OpTypeBool:
		return 4
	case OpTypeInt, OpTypeFloat:
		return t.width / 8
	case OpTypeVector, OpTypeMatrix:
		return t.count * m.sizeOf(t.elem)
	case OpTypeArray:
		length := m.constants[t.lengthID]
		if stride, ok := m.decoration(id, DecorationArrayStride); ok {
			return length * stride
		}
		return length * m.sizeOf(t.elem)
	case OpTypeRuntimeArray:
		return 0
	case OpTypeStruct:
		var size uint32
		for i, member := range t.members {
			end := m.memberOffsets[id][uint32(i)] + m.sizeOf(member)
			if end > size {
				size = end
			}
		}
		return size
	}
	return 0
}

// decodeString reads a nul-terminated UTF-8 literal packed little-endian into
// 32-bit words. Returns the string and the number of words consumed.
func decodeString(words []uint32) (string, int) {
	out := []byte{}
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(out), i + 1
			}
			out = append(out, c)
		}
	}
	return string(out), len(words)
}
