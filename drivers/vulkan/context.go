// Package vulkan is a chain.BackendDriver backed by headless Vulkan,
// grounded on the instance/device/queue selection shape of
// engine/renderer/vulkan's VulkanContext/VulkanDevice and retargeted at an
// offscreen, single-submission rendering model: no surface, no swapchain,
// one graphics queue, every draw call fully recorded/submitted/waited on
// before DrawFullscreenQuad returns (mirroring the synchronous contract
// the CPU and OpenGL drivers already give the chain).
package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/shaderforge/slangchain/core"
)

// Context owns the instance, physical/logical device and the single
// graphics queue and command pool every Driver call records against. The
// caller creates one Context per process (NewContext initializes the
// Vulkan loader itself) and is responsible for calling Destroy during
// shutdown.
type Context struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device
	Allocator      *vk.AllocationCallbacks

	GraphicsQueue       vk.Queue
	GraphicsQueueFamily uint32
	CommandPool         vk.CommandPool

	Memory vk.PhysicalDeviceMemoryProperties
}

// NewContext creates an offscreen Vulkan context: an instance with no
// surface extensions, the first discrete (falling back to any) physical
// device exposing a graphics queue family, and a logical device with that
// one queue plus its command pool.
func NewContext(appName string) (*Context, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan: loader init: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   vulkanSafeString(appName),
		PEngineName:        vulkanSafeString("slangchain"),
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateInstance failed: %s", vulkanResultString(res))
	}
	if err := vk.InitInstance(instance); err != nil {
		return nil, fmt.Errorf("vulkan: InitInstance: %w", err)
	}

	ctx := &Context{Instance: instance}
	if err := ctx.selectPhysicalDevice(); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	if err := ctx.createLogicalDevice(); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	return ctx, nil
}

func (c *Context) selectPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, nil); res != vk.Success || count == 0 {
		return fmt.Errorf("vulkan: no physical devices available")
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, devices); res != vk.Success {
		return fmt.Errorf("vulkan: EnumeratePhysicalDevices failed: %s", vulkanResultString(res))
	}

	var fallback vk.PhysicalDevice
	var fallbackFamily uint32 = vk.MaxUint32
	for _, pd := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()

		family, ok := graphicsQueueFamily(pd)
		if !ok {
			continue
		}
		if fallback == nil {
			fallback, fallbackFamily = pd, family
		}
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			core.LogInfo("vulkan: selected discrete device %q", vk.ToString(props.DeviceName[:]))
			c.PhysicalDevice = pd
			c.GraphicsQueueFamily = family
			vk.GetPhysicalDeviceMemoryProperties(pd, &c.Memory)
			c.Memory.Deref()
			return nil
		}
	}
	if fallback == nil {
		return fmt.Errorf("vulkan: no device exposes a graphics queue family")
	}
	c.PhysicalDevice = fallback
	c.GraphicsQueueFamily = fallbackFamily
	vk.GetPhysicalDeviceMemoryProperties(fallback, &c.Memory)
	c.Memory.Deref()
	return nil
}

func graphicsQueueFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i, f := range families {
		f.Deref()
		if uint32(f.QueueFlags)&uint32(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func (c *Context) createLogicalDevice() error {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.GraphicsQueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}
	features := vk.PhysicalDeviceFeatures{}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                 vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:  1,
		PQueueCreateInfos:     []vk.DeviceQueueCreateInfo{queueInfo},
		PEnabledFeatures:      []vk.PhysicalDeviceFeatures{features},
	}
	deviceInfo.Deref()

	var device vk.Device
	if res := vk.CreateDevice(c.PhysicalDevice, &deviceInfo, c.Allocator, &device); res != vk.Success {
		return fmt.Errorf("vulkan: CreateDevice failed: %s", vulkanResultString(res))
	}
	c.Device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, c.GraphicsQueueFamily, 0, &queue)
	c.GraphicsQueue = queue

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: c.GraphicsQueueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolInfo, c.Allocator, &pool); res != vk.Success {
		return fmt.Errorf("vulkan: CreateCommandPool failed: %s", vulkanResultString(res))
	}
	c.CommandPool = pool
	return nil
}

// FindMemoryIndex mirrors VulkanContext.FindMemoryIndex: the first memory
// type whose bit is set in typeBits and whose properties are a superset of
// want.
func (c *Context) FindMemoryIndex(typeBits uint32, want vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < c.Memory.MemoryTypeCount; i++ {
		c.Memory.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && uint32(c.Memory.MemoryTypes[i].PropertyFlags)&uint32(want) == uint32(want) {
			return int32(i)
		}
	}
	core.LogWarn("vulkan: no memory type matches filter 0x%x want 0x%x", typeBits, uint32(want))
	return -1
}

// Destroy releases the command pool, logical device and instance, in that
// order. Safe to call on a partially-constructed Context.
func (c *Context) Destroy() {
	if c.CommandPool != nil {
		vk.DestroyCommandPool(c.Device, c.CommandPool, c.Allocator)
	}
	if c.Device != nil {
		vk.DestroyDevice(c.Device, c.Allocator)
	}
	if c.Instance != nil {
		vk.DestroyInstance(c.Instance, c.Allocator)
	}
}
