//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the viewer shaders to SPIR-V.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/viewer.vert", "-o", "shaders/viewer.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("shaders/viewer.frag", "-o", "shaders/viewer.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
