package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// CreateInstance creates the Vulkan instance. requiredExtensions comes from
// the windowing layer; validation adds the Khronos validation layer and the
// debug report extension when available.
func CreateInstance(appName string, requiredExtensions []string, validation bool) (vk.Instance, []string, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := []string{"VK_KHR_surface"}
	extensions = append(extensions, requiredExtensions...)

	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	layers := []string{}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)

		available, err := availableLayers()
		if err != nil {
			return nil, nil, err
		}
		if _, ok := available[validationLayerName]; !ok {
			return nil, nil, fmt.Errorf("validation requested but %s is not installed", validationLayerName)
		}
		layers = append(layers, validationLayerName)

		core.LogInfo("Validation layers enabled")
		for _, ext := range extensions {
			core.LogDebug("instance extension: %s", ext)
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, nil, fmt.Errorf("failed to create Vulkan instance: %w", err)
	}

	if err := vk.InitInstance(instance); err != nil {
		return nil, nil, fmt.Errorf("failed to load instance procedures: %w", err)
	}

	return instance, layers, nil
}

func availableLayers() (map[string]struct{}, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, fmt.Errorf("failed to count instance layers: %w", err)
	}
	properties := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, properties)); err != nil {
		return nil, fmt.Errorf("failed to enumerate instance layers: %w", err)
	}

	layers := make(map[string]struct{}, count)
	for i := range properties {
		properties[i].Deref()
		name := string(properties[i].LayerName[:FindFirstZeroInByteArray(properties[i].LayerName[:])])
		layers[name] = struct{}{}
	}
	return layers, nil
}
