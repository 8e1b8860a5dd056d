package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

/**
 * @brief Top-level application configuration, loaded from a TOML file.
 */
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
}

type ApplicationConfig struct {
	/** @brief The window title. */
	Name string `toml:"name"`
	/** @brief The initial window width in pixels. */
	Width uint32 `toml:"width"`
	/** @brief The initial window height in pixels. */
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	/** @brief Enables the Vulkan validation layers and the debug messenger. */
	EnableValidation bool `toml:"enable_validation"`
	/** @brief Directory holding GLSL sources and compiled .spv binaries. */
	ShaderDir string `toml:"shader_dir"`
	/** @brief Image file bound as the albedo texture. Empty skips loading. */
	AlbedoPath string `toml:"albedo_path"`
	/** @brief Recompile and rebuild shader programs when their sources change. */
	WatchShaders bool `toml:"watch_shaders"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "Lumen",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			EnableValidation: true,
			ShaderDir:        "shaders",
			WatchShaders:     true,
		},
	}
}

// Load reads a TOML configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
