package systems

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/renderer/reflection"
)

// ShaderCompiler turns one shader source file into SPIR-V words. The compiler
// itself is an external collaborator; the shader system only consumes its
// output.
type ShaderCompiler interface {
	Compile(path string, stage reflection.StageFlags) ([]uint32, error)
}

/**
 * @brief Compiles GLSL sources by shelling out to glslc.
 */
type GlslcCompiler struct {
	binary *loaders.BinaryLoader
}

func NewGlslcCompiler() *GlslcCompiler {
	return &GlslcCompiler{binary: &loaders.BinaryLoader{}}
}

func (c *GlslcCompiler) Compile(path string, stage reflection.StageFlags) ([]uint32, error) {
	out, err := os.CreateTemp("", "lumen-*.spv")
	if err != nil {
		return nil, err
	}
	out.Close()
	defer os.Remove(out.Name())

	cmd := exec.Command("glslc", path, "-o", out.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("glslc failed for %s: %s: %s", path, err, output)
	}

	return c.binary.LoadSPIRV(out.Name())
}

/**
 * @brief Loads precompiled binaries placed next to the source, e.g.
 * shader.vert -> shader.vert.spv. Useful when no compiler is installed.
 */
type PrecompiledLoader struct {
	binary *loaders.BinaryLoader
}

func NewPrecompiledLoader() *PrecompiledLoader {
	return &PrecompiledLoader{binary: &loaders.BinaryLoader{}}
}

func (c *PrecompiledLoader) Compile(path string, stage reflection.StageFlags) ([]uint32, error) {
	spv := path + ".spv"
	if _, err := os.Stat(spv); err != nil {
		return nil, fmt.Errorf("no compiled binary for %s: %w", filepath.Base(path), err)
	}
	return c.binary.LoadSPIRV(spv)
}
