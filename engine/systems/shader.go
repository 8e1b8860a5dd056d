package systems

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
	"github.com/spaghettifunk/lumen/engine/renderer/spirv"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// The pipeline stage of a shader source is encoded in its file extension.
var stageExtensions = map[string]reflection.StageFlags{
	".vert": reflection.StageVertex,
	".frag": reflection.StageFragment,
	".geom": reflection.StageGeometry,
	".comp": reflection.StageCompute,
	".tesc": reflection.StageTessellationControl,
	".tese": reflection.StageTessellationEvaluation,
}

/**
 * @brief One stage source of a shader program.
 */
type ShaderStage struct {
	/** @brief The pipeline stage this source compiles to. */
	Stage reflection.StageFlags
	/** @brief Path of the GLSL source file. */
	Path string
	/** @brief Uniform buffer names to report as dynamically offset. */
	DynamicBuffers map[string]struct{}
}

// programBuild is one successful compile+reflect+layout result. Builds are
// swapped atomically under the program: a failed rebuild never touches the
// previous one.
type programBuild struct {
	reflection     *reflection.ProgramReflection
	metadata       map[reflection.StageFlags]*spirv.StageMetadata
	modules        map[reflection.StageFlags]vk.ShaderModule
	pipelineLayout vk.PipelineLayout
	setLayouts     []*vulkan.SetLayout
	layouts        *vulkan.LayoutBuilder
}

func (b *programBuild) destroy(device vulkan.Device) {
	for _, module := range b.modules {
		device.DestroyShaderModule(module)
	}
	b.layouts.Destroy()
}

/**
 * @brief A shader program assembled from per-stage sources.
 *
 * Getters expose the last good build; a program that never built successfully
 * has none and its getters return zero values. The build pointer is guarded so
 * getters may run while a rebuild swaps it in. Native handles obtained from a
 * getter stay valid only until the next successful rebuild; callers that
 * rebuild from another goroutine must hand change events to the render thread
 * first, as the shader watcher documents.
 */
type ShaderProgram struct {
	/** @brief Unique program identifier. */
	ID uuid.UUID
	/** @brief The program name, unique within the shader system. */
	Name string

	stages map[reflection.StageFlags]*ShaderStage

	mu    sync.RWMutex
	build *programBuild
}

func (p *ShaderProgram) currentBuild() *programBuild {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.build
}

// swapBuild installs the new build and returns the one it replaces.
func (p *ShaderProgram) swapBuild(next *programBuild) *programBuild {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.build
	p.build = next
	return previous
}

// Reflection returns the merged resource interface of the last good build.
func (p *ShaderProgram) Reflection() *reflection.ProgramReflection {
	build := p.currentBuild()
	if build == nil {
		return nil
	}
	return build.reflection
}

// PipelineLayout returns the native pipeline layout of the last good build.
func (p *ShaderProgram) PipelineLayout() vk.PipelineLayout {
	build := p.currentBuild()
	if build == nil {
		return vk.NullPipelineLayout
	}
	return build.pipelineLayout
}

// SetLayouts returns the per-set layouts of the last good build, ascending.
func (p *ShaderProgram) SetLayouts() []*vulkan.SetLayout {
	build := p.currentBuild()
	if build == nil {
		return nil
	}
	return build.setLayouts
}

// Module returns the native shader module compiled for the given stage.
func (p *ShaderProgram) Module(stage reflection.StageFlags) (vk.ShaderModule, bool) {
	build := p.currentBuild()
	if build == nil {
		return vk.NullShaderModule, false
	}
	module, ok := build.modules[stage]
	return module, ok
}

// StageMetadata returns entry point and work-group information for a stage.
func (p *ShaderProgram) StageMetadata(stage reflection.StageFlags) (*spirv.StageMetadata, bool) {
	build := p.currentBuild()
	if build == nil {
		return nil, false
	}
	meta, ok := build.metadata[stage]
	return meta, ok
}

// IsBuilt reports whether the program has a usable build.
func (p *ShaderProgram) IsBuilt() bool {
	return p.currentBuild() != nil
}

// usesSource reports whether any stage compiles from the given file.
func (p *ShaderProgram) usesSource(path string) bool {
	for _, stage := range p.stages {
		if stage.Path == path {
			return true
		}
	}
	return false
}

/**
 * @brief Owns every shader program and drives compile, reflect and layout
 * creation. Rebuilds roll back to the previous good build on any failure so
 * a bad shader edit never takes the application down.
 */
type ShaderSystem struct {
	device   vulkan.Device
	compiler ShaderCompiler

	mutex    sync.Mutex
	programs map[string]*ShaderProgram
}

func NewShaderSystem(device vulkan.Device, compiler ShaderCompiler) *ShaderSystem {
	return &ShaderSystem{
		device:   device,
		compiler: compiler,
		programs: make(map[string]*ShaderProgram),
	}
}

// CreateProgram registers an empty program under the given name.
func (s *ShaderSystem) CreateProgram(name string) (*ShaderProgram, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.programs[name]; exists {
		return nil, fmt.Errorf("shader program %q already exists", name)
	}
	program := &ShaderProgram{
		ID:     uuid.New(),
		Name:   name,
		stages: make(map[reflection.StageFlags]*ShaderStage),
	}
	s.programs[name] = program
	return program, nil
}

// GetProgram looks a program up by name.
func (s *ShaderSystem) GetProgram(name string) (*ShaderProgram, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	program, ok := s.programs[name]
	if !ok {
		return nil, fmt.Errorf("shader program %q does not exist", name)
	}
	return program, nil
}

// AddStageFile attaches a source file to a program, deriving the stage from
// the file extension. Uniform buffers named in dynamicBuffers are reported as
// dynamically offset by reflection.
func (s *ShaderSystem) AddStageFile(program *ShaderProgram, path string, dynamicBuffers []string) error {
	stage, ok := stageExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("cannot add shader stage: %s has an unknown extension", path)
	}

	dynamic := make(map[string]struct{}, len(dynamicBuffers))
	for _, name := range dynamicBuffers {
		dynamic[name] = struct{}{}
	}

	program.stages[stage] = &ShaderStage{
		Stage:          stage,
		Path:           path,
		DynamicBuffers: dynamic,
	}
	return nil
}

// Rebuild compiles every stage of the program, reflects and merges them, and
// creates fresh modules and layouts. On any failure the previous build stays
// live and the error is returned.
func (s *ShaderSystem) Rebuild(program *ShaderProgram) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rebuildLocked(program)
}

func (s *ShaderSystem) rebuildLocked(program *ShaderProgram) error {
	if len(program.stages) == 0 {
		return fmt.Errorf("shader program %q has no stages", program.Name)
	}

	next := &programBuild{
		reflection: reflection.New(),
		metadata:   make(map[reflection.StageFlags]*spirv.StageMetadata),
		modules:    make(map[reflection.StageFlags]vk.ShaderModule),
		layouts:    vulkan.NewLayoutBuilder(s.device),
	}

	err := s.populateBuild(program, next)
	if err != nil {
		next.destroy(s.device)
		core.LogError("failed to rebuild shader %q: %s", program.Name, err)
		if program.IsBuilt() {
			core.LogWarn("shader %q keeps its previous build", program.Name)
		}
		return err
	}

	// Swap first so getters never observe the old build once it is being
	// torn down.
	if previous := program.swapBuild(next); previous != nil {
		previous.destroy(s.device)
	}
	core.LogInfo("shader %q built: %d sets, %d resources",
		program.Name, len(next.setLayouts), len(next.reflection.Resources()))
	return nil
}

func (s *ShaderSystem) populateBuild(program *ShaderProgram, build *programBuild) error {
	for _, stage := range program.stages {
		code, err := s.compiler.Compile(stage.Path, stage.Stage)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Stage, err)
		}

		resources, meta, err := spirv.Reflect(code, stage.Stage, stage.DynamicBuffers)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Stage, err)
		}
		if err := build.reflection.AddResources(resources); err != nil {
			return err
		}
		build.metadata[stage.Stage] = meta

		module, err := s.device.CreateShaderModule(code)
		if err != nil {
			return fmt.Errorf("stage %s: failed to create shader module: %w", stage.Stage, err)
		}
		build.modules[stage.Stage] = module
	}

	pipelineLayout, setLayouts, err := build.layouts.BuildPipelineLayout(build.reflection)
	if err != nil {
		return err
	}
	build.pipelineLayout = pipelineLayout
	build.setLayouts = setLayouts
	return nil
}

// OnSourceChanged rebuilds every program that compiles the given file. Called
// by the shader watcher; failures are logged and the previous builds kept.
func (s *ShaderSystem) OnSourceChanged(path string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, program := range s.programs {
		if !program.usesSource(path) {
			continue
		}
		// rebuildLocked logs and rolls back on failure.
		_ = s.rebuildLocked(program)
	}
}

// Shutdown destroys every program's build.
func (s *ShaderSystem) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, program := range s.programs {
		if previous := program.swapBuild(nil); previous != nil {
			previous.destroy(s.device)
		}
	}
	s.programs = make(map[string]*ShaderProgram)
}
