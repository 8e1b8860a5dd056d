//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the viewer.
func (Run) Viewer() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run viewer...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	var b Build
	mg.Deps(b.Shaders)
	return nil
}
