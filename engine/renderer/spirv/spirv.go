// Package spirv reflects the resource interface of compiled SPIR-V shader
// stages. It decodes just enough of the module (debug names, decorations,
// types, constants and global variables) to recover the declared descriptor
// bindings, push constant ranges and stage metadata.
package spirv

// SPIR-V magic number. The first word of every module.
const MagicNumber = 0x07230203

// headerWords is the fixed size of the module header: magic, version,
// generator, bound, schema.
const headerWords = 5

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes the reflector decodes. Everything else is skipped over.
const (
	OpName             OpCode = 5
	OpMemberName       OpCode = 6
	OpEntryPoint       OpCode = 15
	OpExecutionMode    OpCode = 16
	OpTypeVoid         OpCode = 19
	OpTypeBool         OpCode = 20
	OpTypeInt          OpCode = 21
	OpTypeFloat        OpCode = 22
	OpTypeVector       OpCode = 23
	OpTypeMatrix       OpCode = 24
	OpTypeImage        OpCode = 25
	OpTypeSampler      OpCode = 26
	OpTypeSampledImage OpCode = 27
	OpTypeArray        OpCode = 28
	OpTypeRuntimeArray OpCode = 29
	OpTypeStruct       OpCode = 30
	OpTypePointer      OpCode = 32
	OpConstant         OpCode = 43
	OpVariable         OpCode = 59
	OpDecorate         OpCode = 71
	OpMemberDecorate   OpCode = 72
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// StorageClass represents the storage class of a pointer or variable.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// ExecutionModel identifies the pipeline stage of an entry point.
type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
)

// ExecutionMode carries per-entry-point execution parameters.
type ExecutionMode uint32

const (
	ExecutionModeLocalSize ExecutionMode = 17
)

// Dim is the dimensionality of an image type.
type Dim uint32

const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)
