package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/lut"
)

// maxTextureSlots bounds the combined-image-sampler bindings every
// program's descriptor set layout reserves, mirroring the hard shader
// limits engine/renderer/vulkan/shader.go keeps for memory locality
// (VULKAN_SHADER_MAX_GLOBAL_TEXTURES) rather than reflecting per-pipeline
// binding counts out of the transpiled source.
const maxTextureSlots = 16

// uboArenaSize is the fixed size of every program's uniform buffer. It is
// sized generously against typical per-pass uniform blocks rather than
// derived from reflection, since CreateProgram only receives shader text.
const uboArenaSize = 4096

// pushConstantSize is the Vulkan-guaranteed minimum push constant budget
// (every conformant implementation supports at least 128 bytes).
const pushConstantSize = 128

var colorFormat = vk.FormatR8g8b8a8Unorm

// Texture is a sampled VkImage plus its view and sampler.
type Texture struct {
	image   vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView
	sampler vk.Sampler
	Size    common.Size
}

// Framebuffer is a render-target VkImage (reused as its own Texture) plus
// the VkFramebuffer object bound to the Driver's shared render pass.
type Framebuffer struct {
	fbo *Texture
	fb  vk.Framebuffer
}

// Program is a linked graphics pipeline plus its descriptor machinery.
type Program struct {
	pipeline       vk.Pipeline
	layout         vk.PipelineLayout
	descSetLayout  vk.DescriptorSetLayout
	descPool       vk.DescriptorPool
	descSet        vk.DescriptorSet
	uboBuffer      vk.Buffer
	uboMemory      vk.DeviceMemory
	uboMapped      unsafe.Pointer
	vertexModule   vk.ShaderModule
	fragmentModule vk.ShaderModule
}

// Driver implements chain.BackendDriver against a headless Vulkan
// Context. Every BackendDriver call must run on the goroutine that owns
// ctx -- Vulkan queue submission here is not synchronized across
// goroutines, matching the single-threaded contract of the OpenGL driver.
type Driver struct {
	ctx        *Context
	renderPass vk.RenderPass
	quadBuffer vk.Buffer
	quadMemory vk.DeviceMemory
	dummy      *Texture

	pendingTextures [maxTextureSlots]*Texture
	pendingFilters  [maxTextureSlots]common.FilterMode
	pendingWraps    [maxTextureSlots]common.WrapMode
	pendingUBO      []byte
	pendingPush     []byte
}

// New builds the shared render pass, fullscreen-quad vertex buffer and a
// 1x1 white dummy texture, which each draw binds to every sampler slot that
// has no texture bound.
func New(ctx *Context) (*Driver, error) {
	d := &Driver{ctx: ctx}

	if err := d.createRenderPass(); err != nil {
		return nil, err
	}
	if err := d.createQuad(); err != nil {
		return nil, err
	}
	dummy, err := d.uploadTexture([]byte{255, 255, 255, 255}, common.Size{Width: 1, Height: 1}, common.FilterNearest, common.WrapModeClampToEdge, vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	if err != nil {
		return nil, fmt.Errorf("vulkan: creating dummy texture: %w", err)
	}
	d.dummy = dummy
	return d, nil
}

func (d *Driver) createRenderPass() error {
	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
	}
	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}
	rpInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var rp vk.RenderPass
	if res := vk.CreateRenderPass(d.ctx.Device, &rpInfo, d.ctx.Allocator, &rp); res != vk.Success {
		return fmt.Errorf("vulkan: CreateRenderPass failed: %s", vulkanResultString(res))
	}
	d.renderPass = rp
	return nil
}

// createQuad uploads the same NDC quad the OpenGL driver draws: position
// (vec2, location 0) and texcoord (vec2, location 1) interleaved.
func (d *Driver) createQuad() error {
	verts := []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		-1, 1, 0, 1,
		1, 1, 1, 1,
	}
	size := vk.DeviceSize(len(verts) * 4)
	buf, mem, err := d.allocateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return fmt.Errorf("vulkan: creating quad buffer: %w", err)
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(d.ctx.Device, mem, 0, size, 0, &mapped); res != vk.Success {
		return fmt.Errorf("vulkan: mapping quad buffer: %s", vulkanResultString(res))
	}
	floatsDst := (*[16]float32)(mapped)[:]
	copy(floatsDst, verts)
	vk.UnmapMemory(d.ctx.Device, mem)

	d.quadBuffer, d.quadMemory = buf, mem
	return nil
}

func (d *Driver) allocateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	bufInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if res := vk.CreateBuffer(d.ctx.Device, &bufInfo, d.ctx.Allocator, &buf); res != vk.Success {
		return nil, nil, fmt.Errorf("vulkan: CreateBuffer failed: %s", vulkanResultString(res))
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.ctx.Device, buf, &reqs)
	reqs.Deref()

	memIdx := d.ctx.FindMemoryIndex(reqs.MemoryTypeBits, properties)
	if memIdx < 0 {
		vk.DestroyBuffer(d.ctx.Device, buf, d.ctx.Allocator)
		return nil, nil, fmt.Errorf("vulkan: no memory type for buffer")
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: uint32(memIdx),
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.ctx.Device, &allocInfo, d.ctx.Allocator, &mem); res != vk.Success {
		vk.DestroyBuffer(d.ctx.Device, buf, d.ctx.Allocator)
		return nil, nil, fmt.Errorf("vulkan: AllocateMemory failed: %s", vulkanResultString(res))
	}
	if res := vk.BindBufferMemory(d.ctx.Device, buf, mem, 0); res != vk.Success {
		return nil, nil, fmt.Errorf("vulkan: BindBufferMemory failed: %s", vulkanResultString(res))
	}
	return buf, mem, nil
}

func (d *Driver) LoadLUT(path string, mipmap bool, filter common.FilterMode, wrap common.WrapMode) (chain.TextureHandle, common.Size, error) {
	img, err := lut.Decode(path)
	if err != nil {
		return nil, common.Size{}, err
	}
	tex, err := d.uploadTexture(img.Pixels, img.Size, filter, wrap, vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	if err != nil {
		return nil, common.Size{}, err
	}
	return tex, img.Size, nil
}

// uploadTexture creates a device-local sampled image and, when pixels is
// non-nil, copies it in through a transient host-visible staging buffer.
func (d *Driver) uploadTexture(pixels []byte, size common.Size, filter common.FilterMode, wrap common.WrapMode, usage vk.ImageUsageFlags) (*Texture, error) {
	imgInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    colorFormat,
		Extent:    vk.Extent3D{Width: size.Width, Height: size.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(d.ctx.Device, &imgInfo, d.ctx.Allocator, &image); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateImage failed: %s", vulkanResultString(res))
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.ctx.Device, image, &reqs)
	reqs.Deref()
	memIdx := d.ctx.FindMemoryIndex(reqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memIdx < 0 {
		return nil, fmt.Errorf("vulkan: no device-local memory type for image")
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: uint32(memIdx),
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.ctx.Device, &allocInfo, d.ctx.Allocator, &mem); res != vk.Success {
		return nil, fmt.Errorf("vulkan: AllocateMemory failed: %s", vulkanResultString(res))
	}
	if res := vk.BindImageMemory(d.ctx.Device, image, mem, 0); res != vk.Success {
		return nil, fmt.Errorf("vulkan: BindImageMemory failed: %s", vulkanResultString(res))
	}

	finalLayout := vk.ImageLayoutShaderReadOnlyOptimal
	if pixels != nil {
		if err := d.uploadPixels(image, pixels, size, finalLayout); err != nil {
			return nil, err
		}
	} else {
		if err := d.transitionLayout(image, vk.ImageLayoutUndefined, finalLayout); err != nil {
			return nil, err
		}
	}

	view, err := d.createView(image)
	if err != nil {
		return nil, err
	}
	sampler, err := d.createSampler(filter, wrap)
	if err != nil {
		return nil, err
	}
	return &Texture{image: image, memory: mem, view: view, sampler: sampler, Size: size}, nil
}

func (d *Driver) createView(image vk.Image) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   colorFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.ctx.Device, &viewInfo, d.ctx.Allocator, &view); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateImageView failed: %s", vulkanResultString(res))
	}
	return view, nil
}

func (d *Driver) createSampler(filter common.FilterMode, wrap common.WrapMode) (vk.Sampler, error) {
	f := vk.FilterNearest
	if filter == common.FilterLinear {
		f = vk.FilterLinear
	}
	addr := vulkanAddressMode(wrap)
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    f,
		MinFilter:    f,
		AddressModeU: addr,
		AddressModeV: addr,
		AddressModeW: addr,
		BorderColor:  vk.BorderColorFloatTransparentBlack,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(d.ctx.Device, &info, d.ctx.Allocator, &sampler); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateSampler failed: %s", vulkanResultString(res))
	}
	return sampler, nil
}

func vulkanAddressMode(wrap common.WrapMode) vk.SamplerAddressMode {
	switch wrap {
	case common.WrapModeRepeat:
		return vk.SamplerAddressModeRepeat
	case common.WrapModeMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case common.WrapModeClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeClampToEdge
	}
}

func (d *Driver) uploadPixels(image vk.Image, pixels []byte, size common.Size, finalLayout vk.ImageLayout) error {
	stagingBuf, stagingMem, err := d.allocateBuffer(vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer vk.DestroyBuffer(d.ctx.Device, stagingBuf, d.ctx.Allocator)
	defer vk.FreeMemory(d.ctx.Device, stagingMem, d.ctx.Allocator)

	var mapped unsafe.Pointer
	if res := vk.MapMemory(d.ctx.Device, stagingMem, 0, vk.DeviceSize(len(pixels)), 0, &mapped); res != vk.Success {
		return fmt.Errorf("vulkan: mapping staging buffer: %s", vulkanResultString(res))
	}
	dst := unsafe.Slice((*byte)(mapped), len(pixels))
	copy(dst, pixels)
	vk.UnmapMemory(d.ctx.Device, stagingMem)

	cmd, err := d.beginSingleUse()
	if err != nil {
		return err
	}
	cmdImageBarrier(cmd, image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		ImageSubresource:  vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		ImageExtent:       vk.Extent3D{Width: size.Width, Height: size.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd, stagingBuf, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	cmdImageBarrier(cmd, image, vk.ImageLayoutTransferDstOptimal, finalLayout)
	return d.endSingleUse(cmd)
}

func (d *Driver) transitionLayout(image vk.Image, from, to vk.ImageLayout) error {
	cmd, err := d.beginSingleUse()
	if err != nil {
		return err
	}
	cmdImageBarrier(cmd, image, from, to)
	return d.endSingleUse(cmd)
}

func cmdImageBarrier(cmd vk.CommandBuffer, image vk.Image, from, to vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case to == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (d *Driver) beginSingleUse() (vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.ctx.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.ctx.Device, &allocInfo, cmds); res != vk.Success {
		return nil, fmt.Errorf("vulkan: AllocateCommandBuffers failed: %s", vulkanResultString(res))
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cmds[0], &beginInfo); res != vk.Success {
		return nil, fmt.Errorf("vulkan: BeginCommandBuffer failed: %s", vulkanResultString(res))
	}
	return cmds[0], nil
}

func (d *Driver) endSingleUse(cmd vk.CommandBuffer) error {
	if res := vk.EndCommandBuffer(cmd); res != vk.Success {
		return fmt.Errorf("vulkan: EndCommandBuffer failed: %s", vulkanResultString(res))
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if res := vk.QueueSubmit(d.ctx.GraphicsQueue, 1, []vk.SubmitInfo{submit}, nil); res != vk.Success {
		return fmt.Errorf("vulkan: QueueSubmit failed: %s", vulkanResultString(res))
	}
	if res := vk.QueueWaitIdle(d.ctx.GraphicsQueue); res != vk.Success {
		return fmt.Errorf("vulkan: QueueWaitIdle failed: %s", vulkanResultString(res))
	}
	vk.FreeCommandBuffers(d.ctx.Device, d.ctx.CommandPool, 1, []vk.CommandBuffer{cmd})
	return nil
}

func (d *Driver) CreateProgram(vertex, fragment string) (chain.ProgramHandle, error) {
	vertWords, err := compileToSPIRV(vertex, "vert")
	if err != nil {
		return nil, fmt.Errorf("vulkan: vertex shader: %w", err)
	}
	vertModule, err := d.createShaderModule(vertWords)
	if err != nil {
		return nil, fmt.Errorf("vulkan: vertex module: %w", err)
	}
	fragWords, err := compileToSPIRV(fragment, "frag")
	if err != nil {
		vk.DestroyShaderModule(d.ctx.Device, vertModule, d.ctx.Allocator)
		return nil, fmt.Errorf("vulkan: fragment shader: %w", err)
	}
	fragModule, err := d.createShaderModule(fragWords)
	if err != nil {
		vk.DestroyShaderModule(d.ctx.Device, vertModule, d.ctx.Allocator)
		return nil, fmt.Errorf("vulkan: fragment module: %w", err)
	}

	p := &Program{vertexModule: vertModule, fragmentModule: fragModule}

	descSetLayout, err := d.createDescriptorSetLayout()
	if err != nil {
		return nil, err
	}
	p.descSetLayout = descSetLayout

	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		Offset:     0,
		Size:       pushConstantSize,
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{descSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.ctx.Device, &layoutInfo, d.ctx.Allocator, &layout); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreatePipelineLayout failed: %s", vulkanResultString(res))
	}
	p.layout = layout

	pipeline, err := d.createPipeline(p)
	if err != nil {
		return nil, err
	}
	p.pipeline = pipeline

	pool, set, err := d.allocateDescriptorSet(descSetLayout)
	if err != nil {
		return nil, err
	}
	p.descPool, p.descSet = pool, set

	uboBuf, uboMem, err := d.allocateBuffer(uboArenaSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(d.ctx.Device, uboMem, 0, uboArenaSize, 0, &mapped); res != vk.Success {
		return nil, fmt.Errorf("vulkan: mapping UBO: %s", vulkanResultString(res))
	}
	p.uboBuffer, p.uboMemory, p.uboMapped = uboBuf, uboMem, mapped

	return p, nil
}

func (d *Driver) createShaderModule(words []uint32) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words) * 4),
		PCode:    words,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.ctx.Device, &info, d.ctx.Allocator, &module); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateShaderModule failed: %s", vulkanResultString(res))
	}
	return module, nil
}

func (d *Driver) createDescriptorSetLayout() (vk.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, maxTextureSlots+1)
	bindings = append(bindings, vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})
	for slot := 0; slot < maxTextureSlots; slot++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(slot + 1),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.ctx.Device, &info, d.ctx.Allocator, &layout); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateDescriptorSetLayout failed: %s", vulkanResultString(res))
	}
	return layout, nil
}

func (d *Driver) allocateDescriptorSet(layout vk.DescriptorSetLayout) (vk.DescriptorPool, vk.DescriptorSet, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxTextureSlots},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.ctx.Device, &poolInfo, d.ctx.Allocator, &pool); res != vk.Success {
		return nil, nil, fmt.Errorf("vulkan: CreateDescriptorPool failed: %s", vulkanResultString(res))
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(d.ctx.Device, &allocInfo, sets); res != vk.Success {
		vk.DestroyDescriptorPool(d.ctx.Device, pool, d.ctx.Allocator)
		return nil, nil, fmt.Errorf("vulkan: AllocateDescriptorSets failed: %s", vulkanResultString(res))
	}
	return pool, sets[0], nil
}

func (d *Driver) createPipeline(p *Program) (vk.Pipeline, error) {
	entryPoint := vulkanSafeString("main")
	stages := []vk.PipelineShaderStageCreateInfo{
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageVertexBit, Module: p.vertexModule, PName: entryPoint},
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageFragmentBit, Module: p.fragmentModule, PName: entryPoint},
	}

	binding := vk.VertexInputBindingDescription{Binding: 0, Stride: 4 * 4, InputRate: vk.VertexInputRateVertex}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 2 * 4},
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleStrip,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              p.layout,
		RenderPass:          d.renderPass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.ctx.Device, nil, 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, d.ctx.Allocator, pipelines); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateGraphicsPipelines failed: %s", vulkanResultString(res))
	}
	return pipelines[0], nil
}

func (d *Driver) DestroyProgram(program chain.ProgramHandle) {
	p := program.(*Program)
	vk.UnmapMemory(d.ctx.Device, p.uboMemory)
	vk.DestroyBuffer(d.ctx.Device, p.uboBuffer, d.ctx.Allocator)
	vk.FreeMemory(d.ctx.Device, p.uboMemory, d.ctx.Allocator)
	vk.DestroyDescriptorPool(d.ctx.Device, p.descPool, d.ctx.Allocator)
	vk.DestroyDescriptorSetLayout(d.ctx.Device, p.descSetLayout, d.ctx.Allocator)
	vk.DestroyPipeline(d.ctx.Device, p.pipeline, d.ctx.Allocator)
	vk.DestroyPipelineLayout(d.ctx.Device, p.layout, d.ctx.Allocator)
	vk.DestroyShaderModule(d.ctx.Device, p.vertexModule, d.ctx.Allocator)
	vk.DestroyShaderModule(d.ctx.Device, p.fragmentModule, d.ctx.Allocator)
}

func (d *Driver) AllocateFramebuffer(existing chain.FramebufferHandle, size common.Size, format common.ImageFormat) (chain.FramebufferHandle, error) {
	if fb, ok := existing.(*Framebuffer); ok && fb.fbo.Size == size {
		return fb, nil
	}
	if fb, ok := existing.(*Framebuffer); ok {
		d.DestroyFramebuffer(fb)
	}

	tex, err := d.uploadTexture(nil, size, common.FilterLinear, common.WrapModeClampToEdge,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit)|vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit))
	if err != nil {
		return nil, err
	}

	fbInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      d.renderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{tex.view},
		Width:           size.Width,
		Height:          size.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(d.ctx.Device, &fbInfo, d.ctx.Allocator, &fb); res != vk.Success {
		return nil, fmt.Errorf("vulkan: CreateFramebuffer failed: %s", vulkanResultString(res))
	}
	return &Framebuffer{fbo: tex, fb: fb}, nil
}

func (d *Driver) DestroyFramebuffer(fbh chain.FramebufferHandle) {
	fb := fbh.(*Framebuffer)
	vk.DestroyFramebuffer(d.ctx.Device, fb.fb, d.ctx.Allocator)
	d.destroyTexture(fb.fbo)
}

func (d *Driver) destroyTexture(t *Texture) {
	vk.DestroySampler(d.ctx.Device, t.sampler, d.ctx.Allocator)
	vk.DestroyImageView(d.ctx.Device, t.view, d.ctx.Allocator)
	vk.DestroyImage(d.ctx.Device, t.image, d.ctx.Allocator)
	vk.FreeMemory(d.ctx.Device, t.memory, d.ctx.Allocator)
}

// ClearFramebuffer is a no-op here: the render pass this Driver uses
// always clears its color attachment on load, so the clear happens as
// part of DrawFullscreenQuad's vkCmdBeginRenderPass.
func (d *Driver) ClearFramebuffer(fb chain.FramebufferHandle) {}

func (d *Driver) FramebufferTexture(fb chain.FramebufferHandle) chain.TextureHandle {
	return fb.(*Framebuffer).fbo
}

func (d *Driver) BindTexture(slot uint32, tex chain.TextureHandle, filter common.FilterMode, wrap common.WrapMode) {
	if slot >= maxTextureSlots {
		core.LogWarn("vulkan driver: sampler slot %d exceeds the %d reserved slots, ignoring", slot, maxTextureSlots)
		return
	}
	t, _ := tex.(*Texture)
	d.pendingTextures[slot] = t
	d.pendingFilters[slot] = filter
	d.pendingWraps[slot] = wrap
}

func (d *Driver) BindUniforms(ubo, push []byte) {
	d.pendingUBO = append(d.pendingUBO[:0], ubo...)
	d.pendingPush = append(d.pendingPush[:0], push...)
}

func (d *Driver) DrawFullscreenQuad(program chain.ProgramHandle, target chain.FramebufferHandle) error {
	p := program.(*Program)
	fb := target.(*Framebuffer)

	if len(d.pendingUBO) > 0 {
		n := len(d.pendingUBO)
		if n > uboArenaSize {
			n = uboArenaSize
		}
		dst := unsafe.Slice((*byte)(p.uboMapped), uboArenaSize)
		copy(dst, d.pendingUBO[:n])
	}
	d.updateDescriptorSet(p)

	cmd, err := d.beginSingleUse()
	if err != nil {
		return err
	}

	clearValue := vk.ClearValue{}
	clearValue.SetColor([]float32{0, 0, 0, 0})
	rpBegin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  d.renderPass,
		Framebuffer: fb.fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: fb.fbo.Size.Width, Height: fb.fbo.Size.Height},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearValue},
	}
	vk.CmdBeginRenderPass(cmd, &rpBegin, vk.SubpassContentsInline)

	viewport := vk.Viewport{Width: float32(fb.fbo.Size.Width), Height: float32(fb.fbo.Size.Height), MinDepth: 0, MaxDepth: 1}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: fb.fbo.Size.Width, Height: fb.fbo.Size.Height}}
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, p.layout, 0, 1, []vk.DescriptorSet{p.descSet}, 0, nil)
	if len(d.pendingPush) > 0 {
		n := len(d.pendingPush)
		if n > pushConstantSize {
			n = pushConstantSize
		}
		vk.CmdPushConstants(cmd, p.layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 0, uint32(n), unsafe.Pointer(&d.pendingPush[0]))
	}
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.quadBuffer}, []vk.DeviceSize{0})
	vk.CmdDraw(cmd, 4, 1, 0, 0)
	vk.CmdEndRenderPass(cmd)

	return d.endSingleUse(cmd)
}

// CopyFramebuffer records a one-shot vkCmdCopyImage from src's color
// attachment into dst's, transitioning both out of and back into
// shader-read-only layout around the copy.
func (d *Driver) CopyFramebuffer(src, dst chain.FramebufferHandle) error {
	s := src.(*Framebuffer)
	t := dst.(*Framebuffer)

	cmd, err := d.beginSingleUse()
	if err != nil {
		return err
	}
	cmdImageBarrier(cmd, s.fbo.image, vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal)
	cmdImageBarrier(cmd, t.fbo.image, vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal)

	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		Extent:         vk.Extent3D{Width: t.fbo.Size.Width, Height: t.fbo.Size.Height, Depth: 1},
	}
	vk.CmdCopyImage(cmd, s.fbo.image, vk.ImageLayoutTransferSrcOptimal, t.fbo.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})

	cmdImageBarrier(cmd, s.fbo.image, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	cmdImageBarrier(cmd, t.fbo.image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)

	return d.endSingleUse(cmd)
}

func (d *Driver) updateDescriptorSet(p *Program) {
	var imageInfos [maxTextureSlots]vk.DescriptorImageInfo
	writes := make([]vk.WriteDescriptorSet, 0, maxTextureSlots+1)
	for slot := 0; slot < maxTextureSlots; slot++ {
		tex := d.pendingTextures[slot]
		if tex == nil {
			tex = d.dummy
		}
		imageInfos[slot] = vk.DescriptorImageInfo{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   tex.view,
			Sampler:     tex.sampler,
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.descSet,
			DstBinding:      uint32(slot + 1),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfos[slot]},
		})
	}
	bufInfo := vk.DescriptorBufferInfo{Buffer: p.uboBuffer, Offset: 0, Range: vk.DeviceSize(uboArenaSize)}
	writes = append(writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          p.descSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufInfo},
	})
	vk.UpdateDescriptorSets(d.ctx.Device, uint32(len(writes)), writes, 0, nil)
}

// Close releases the quad buffer, dummy texture and render pass. Programs
// and framebuffers must be destroyed individually before calling Close.
func (d *Driver) Close() {
	d.destroyTexture(d.dummy)
	vk.DestroyBuffer(d.ctx.Device, d.quadBuffer, d.ctx.Allocator)
	vk.FreeMemory(d.ctx.Device, d.quadMemory, d.ctx.Allocator)
	vk.DestroyRenderPass(d.ctx.Device, d.renderPass, d.ctx.Allocator)
}

// compileToSPIRV shells out to glslc, the same library-contract pattern
// compiler.ExecFrontEnd uses for the front-end compile stage.
func compileToSPIRV(source string, stage string) ([]uint32, error) {
	dir := os.TempDir()
	base := filepath.Join(dir, fmt.Sprintf("slangchain-vk-%s", stage))
	srcPath := base + "." + stage
	outPath := srcPath + ".spv"
	defer os.Remove(srcPath)
	defer os.Remove(outPath)

	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("vulkan: write temp shader source: %w", err)
	}
	cmd := exec.Command("glslc", "-fshader-stage="+stage, srcPath, "-o", outPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("vulkan: glslc failed: %s: %s", err, out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("vulkan: read SPIR-V output: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vulkan: SPIR-V output not word-aligned")
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
