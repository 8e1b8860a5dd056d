package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// The debug report callback routes validation messages into the process-wide
// logger, which makes it process-wide state by necessity of the underlying
// API. It is modeled as an explicitly initialized and torn down singleton
// whose lifetime is nested inside the instance's.
var debugMessenger struct {
	mu       sync.Mutex
	handle   vk.DebugReportCallback
	attached bool
}

// InitDebugMessenger installs the validation message callback on the given
// instance. Calling it twice without a teardown in between is an error.
func InitDebugMessenger(instance vk.Instance) error {
	debugMessenger.mu.Lock()
	defer debugMessenger.mu.Unlock()

	if debugMessenger.attached {
		return fmt.Errorf("debug messenger already initialized")
	}

	createInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var handle vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(instance, &createInfo, nil, &handle)); err != nil {
		return fmt.Errorf("failed to create debug report callback: %w", err)
	}

	debugMessenger.handle = handle
	debugMessenger.attached = true
	core.LogDebug("Vulkan debug messenger created")
	return nil
}

// TeardownDebugMessenger removes the callback. Must run before the instance
// is destroyed. Safe to call when no messenger is attached.
func TeardownDebugMessenger(instance vk.Instance) {
	debugMessenger.mu.Lock()
	defer debugMessenger.mu.Unlock()

	if !debugMessenger.attached {
		return
	}
	vk.DestroyDebugReportCallback(instance, debugMessenger.handle, nil)
	debugMessenger.handle = vk.NullDebugReportCallback
	debugMessenger.attached = false
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64,
	messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE [%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
