/*
This is an example viewer that uses the engine package
to reflect a shader program and cycle descriptor sets
*/
package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/systems"
)

func main() {
	cfg, err := config.Load("lumen.toml")
	if err != nil {
		panic(err)
	}

	p := platform.New()
	if err := p.Startup(cfg.Application.Name, cfg.Application.Width, cfg.Application.Height); err != nil {
		panic(err)
	}
	defer p.Shutdown()

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vulkan: %s", err)
		return
	}

	instance, layers, err := vulkan.CreateInstance(cfg.Application.Name, p.GetRequiredExtensionNames(), cfg.Renderer.EnableValidation)
	if err != nil {
		core.LogFatal("%s", err)
		return
	}
	defer vk.DestroyInstance(instance, nil)

	if cfg.Renderer.EnableValidation {
		if err := vulkan.InitDebugMessenger(instance); err != nil {
			core.LogFatal("%s", err)
			return
		}
		defer vulkan.TeardownDebugMessenger(instance)
	}

	device, err := vulkan.NewGraphicsDevice(instance, layers)
	if err != nil {
		core.LogFatal("%s", err)
		return
	}
	defer device.Destroy()

	cache := vulkan.NewDescriptorSetCache(device)
	defer cache.Destroy()

	shaders := systems.NewShaderSystem(device, systems.NewGlslcCompiler())
	defer shaders.Shutdown()

	program, err := shaders.CreateProgram("viewer")
	if err != nil {
		core.LogFatal("%s", err)
		return
	}
	for _, source := range []string{"viewer.vert", "viewer.frag"} {
		path := filepath.Join(cfg.Renderer.ShaderDir, source)
		if err := shaders.AddStageFile(program, path, []string{"Camera"}); err != nil {
			core.LogFatal("%s", err)
			return
		}
	}
	if err := shaders.Rebuild(program); err != nil {
		core.LogFatal("initial shader build failed: %s", err)
		return
	}
	program.Reflection().DumpInfo()

	// The decoded pixels are handed to the upload path when a frame is
	// recorded; here the viewer only validates and reports the source.
	if cfg.Renderer.AlbedoPath != "" {
		textures := &loaders.TextureLoader{}
		albedo, err := textures.Load(cfg.Renderer.AlbedoPath)
		if err != nil {
			core.LogFatal("failed to load albedo texture: %s", err)
			return
		}
		bounds := albedo.Bounds()
		core.LogInfo("albedo texture %s: %dx%d", cfg.Renderer.AlbedoPath, bounds.Dx(), bounds.Dy())
	}

	// Watcher callbacks run on the watcher goroutine; rebuilds must happen on
	// the render thread, so changes are queued and drained in the frame loop.
	shaderChanges := make(chan string, 16)
	if cfg.Renderer.WatchShaders {
		watcher, err := assets.NewShaderWatcher(func(path string) {
			select {
			case shaderChanges <- path:
			default:
				core.LogWarn("shader change queue full, dropping %s", path)
			}
		})
		if err != nil {
			core.LogFatal("%s", err)
			return
		}
		if err := watcher.Watch(cfg.Renderer.ShaderDir); err != nil {
			core.LogFatal("%s", err)
			return
		}
		defer watcher.Close()
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	for !p.ShouldClose() {
		select {
		case <-sigCh:
			return
		case path := <-shaderChanges:
			shaders.OnSourceChanged(path)
		default:
		}
		p.PumpMessages()

		// One handle per set per frame; command recording would bind these.
		for _, layout := range program.SetLayouts() {
			handle, err := cache.AcquireHandle(layout)
			if err != nil {
				core.LogError("descriptor acquisition failed: %s", err)
				continue
			}
			handle.Release()
		}
	}
}
