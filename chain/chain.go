package chain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shaderforge/slangchain/backend"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

// FrameOptions are the per-frame caller-supplied values beyond the input
// image, viewport and frame counter (spec.md §6.1 "frame(...) → options").
type FrameOptions struct {
	Direction FrameDirection
	// MVP overrides the identity MVP matrix used by default. nil keeps the
	// chain's last-used value.
	MVP *[16]float32
}

// FilterChain is the public contract described in spec.md §6.1: it owns
// every GPU resource it allocates and drives BackendDriver to record one
// frame at a time.
type FilterChain struct {
	id     uuid.UUID
	driver BackendDriver

	artifacts []reflect.ShaderPassArtifact
	programs  []ProgramHandle
	storages  []*UniformStorage

	// framebuffers holds two render targets per pass, ping-ponged one
	// frame at a time: parity picks which one this frame renders into,
	// leaving the other holding last frame's completed output intact for
	// a PassFeedback/PassOutput reader to sample (spec.md S6).
	framebuffers [][2]FramebufferHandle
	parity       int

	lutHandles []TextureHandle
	lutConfigs []preset.TextureConfig
	lutSizes   []common.Size

	history  *TextureRing
	feedback *FeedbackSlots

	parameters map[string]float64

	lastMVP          [16]float32
	currentInputSize common.Size
	prevSizes        []common.Size

	poisoned bool
}

// New compiles every pass's reflected SPIR-V for the driver's target,
// allocates uniform storage and loads lookup textures. Construction either
// fully succeeds or leaves no resources allocated (spec.md §5 ownership).
func New(pr *preset.ShaderPreset, artifacts []reflect.ShaderPassArtifact, emitter backend.Emitter, opts backend.Options, driver BackendDriver) (*FilterChain, error) {
	programs := make([]ProgramHandle, len(artifacts))
	storages := make([]*UniformStorage, len(artifacts))

	cleanup := func() {
		for _, p := range programs {
			if p != nil {
				driver.DestroyProgram(p)
			}
		}
	}

	for i, art := range artifacts {
		shader, err := emitter.Emit(art.Compiled, opts)
		if err != nil {
			cleanup()
			return nil, &FilterChainError{Pass: i, Op: "emit", Err: err}
		}
		program, err := driver.CreateProgram(shader.Vertex, shader.Fragment)
		if err != nil {
			cleanup()
			return nil, &FilterChainError{Pass: i, Op: "create program", Err: err}
		}
		programs[i] = program

		var uboSize, pushSize uint32
		if art.Reflection.UBO != nil {
			uboSize = art.Reflection.UBO.Size
		}
		if art.Reflection.PushConstant != nil {
			pushSize = art.Reflection.PushConstant.Size
		}
		storages[i] = NewUniformStorage(uboSize, pushSize)
	}

	lutHandles := make([]TextureHandle, len(pr.Textures))
	lutSizes := make([]common.Size, len(pr.Textures))
	for i, tex := range pr.Textures {
		handle, size, err := driver.LoadLUT(tex.Path, tex.Mipmap, tex.Filter, tex.WrapMode)
		if err != nil {
			cleanup()
			return nil, &FilterChainError{Pass: -1, Op: "load LUT " + tex.Name, Err: err}
		}
		lutHandles[i] = handle
		lutSizes[i] = size
	}

	params := make(map[string]float64)
	for _, art := range artifacts {
		for _, id := range art.Source.SortedParameterIDs() {
			params[id] = art.Source.Parameters[id].Initial
		}
	}
	for _, p := range pr.Parameters {
		params[p.Name] = p.Value
	}

	maxHistory := maxHistoryIndex(artifacts)
	id := uuid.New()

	core.LogInfo("chain %s constructed: %d passes, %d LUTs, history depth %d", id, len(artifacts), len(pr.Textures), maxHistory+1)

	return &FilterChain{
		id:           id,
		driver:       driver,
		artifacts:    artifacts,
		programs:     programs,
		storages:     storages,
		framebuffers: make([][2]FramebufferHandle, len(artifacts)),
		lutHandles:   lutHandles,
		lutConfigs:   pr.Textures,
		lutSizes:     lutSizes,
		history:      NewTextureRing(maxHistory + 1),
		feedback:     NewFeedbackSlots(len(artifacts)),
		parameters:   params,
		lastMVP:      IdentityMat4(),
		prevSizes:    make([]common.Size, len(artifacts)),
	}, nil
}

// Frame executes every pass of the chain once, in order, against input,
// writing the final pass's result into output (spec.md §6.1, §5 single
// threaded cooperative model).
func (fc *FilterChain) Frame(input TextureHandle, inputSize common.Size, viewport common.Viewport, output FramebufferHandle, frameCount uint64, opts FrameOptions) error {
	if fc.poisoned {
		return fmt.Errorf("chain %s: %w", fc.id, core.ErrPoisoned)
	}

	if opts.MVP != nil {
		fc.lastMVP = *opts.MVP
	}
	fc.currentInputSize = inputSize

	// Pushed before any pass samples history, so At(0) is this frame's
	// input and At(n) is the input from n frames ago.
	fc.history.Push(input)

	passes := make([]preset.ShaderPassConfig, len(fc.artifacts))
	for i, a := range fc.artifacts {
		passes[i] = a.Config
	}
	sizes := computeOutputSizes(passes, inputSize, viewport)

	cur, prev := fc.parity, 1-fc.parity

	for i, art := range fc.artifacts {
		outSize := sizes[i]
		isLast := i == len(fc.artifacts)-1

		// Every pass, including the last, renders into one of its two
		// owned framebuffers, alternating by parity each frame: the slot
		// not written this frame still holds last frame's completed
		// output, so a PassFeedback/PassOutput reader sees two genuinely
		// distinct framebuffer objects across frames rather than aliasing
		// the single buffer it's about to overwrite.
		fb, err := fc.driver.AllocateFramebuffer(fc.framebuffers[i][cur], outSize, art.Source.Format)
		if err != nil {
			fc.poisoned = true
			return &FrameError{ChainID: fc.id, Pass: i, Err: err}
		}
		fc.framebuffers[i][cur] = fb
		fc.driver.ClearFramebuffer(fb)

		for sem, binding := range art.Reflection.Meta.TextureMeta {
			handle := fc.resolveSampler(sem, i, input, cur, prev)
			filter, wrap := fc.samplerParams(sem, art.Config)
			fc.driver.BindTexture(binding.Binding, handle, filter, wrap)
		}

		fc.writeUniforms(art, i, outSize, viewport, frameCount, opts.Direction, sizes)
		fc.driver.BindUniforms(fc.storages[i].UBO, fc.storages[i].Push)

		if err := fc.driver.DrawFullscreenQuad(fc.programs[i], fb); err != nil {
			fc.poisoned = true
			return &FrameError{ChainID: fc.id, Pass: i, Err: err}
		}

		fc.feedback.SetCurrent(i, fc.driver.FramebufferTexture(fb))

		if isLast {
			if err := fc.driver.CopyFramebuffer(fb, output); err != nil {
				fc.poisoned = true
				return &FrameError{ChainID: fc.id, Pass: i, Err: err}
			}
		}
	}

	fc.feedback.Swap()
	fc.prevSizes = sizes
	fc.parity = prev

	return nil
}

func (fc *FilterChain) resolveSampler(sem reflect.Semantic, passIndex int, input TextureHandle, cur, prev int) TextureHandle {
	switch sem.Kind {
	case reflect.TextureOriginal:
		return input
	case reflect.TextureSource:
		if passIndex == 0 {
			return input
		}
		return fc.passOutput(passIndex-1, passIndex, cur, prev)
	case reflect.TextureOriginalHistory:
		return fc.history.At(sem.Index)
	case reflect.TexturePassOutput:
		return fc.passOutput(sem.Index, passIndex, cur, prev)
	case reflect.TexturePassFeedback:
		return fc.feedback.Feedback(sem.Index)
	case reflect.TextureUser:
		if sem.Index < 0 || sem.Index >= len(fc.lutHandles) {
			return nil
		}
		return fc.lutHandles[sem.Index]
	default:
		return nil
	}
}

// passOutput returns pass idx's most recently completed framebuffer as
// seen from passIndex's point in the loop: if idx already rendered this
// frame (idx < passIndex), that's the slot just written (cur); otherwise
// idx hasn't rendered yet this frame and its most recent output is still
// sitting in the other slot (prev) from last frame.
func (fc *FilterChain) passOutput(idx, passIndex, cur, prev int) TextureHandle {
	if idx < 0 || idx >= len(fc.framebuffers) {
		return nil
	}
	slot := prev
	if idx < passIndex {
		slot = cur
	}
	fb := fc.framebuffers[idx][slot]
	if fb == nil {
		return nil
	}
	return fc.driver.FramebufferTexture(fb)
}

func (fc *FilterChain) samplerParams(sem reflect.Semantic, cfg preset.ShaderPassConfig) (common.FilterMode, common.WrapMode) {
	if sem.Kind == reflect.TextureUser && sem.Index >= 0 && sem.Index < len(fc.lutConfigs) {
		lut := fc.lutConfigs[sem.Index]
		return lut.Filter, lut.WrapMode
	}
	return cfg.Filter, cfg.WrapMode
}

func (fc *FilterChain) writeUniforms(art reflect.ShaderPassArtifact, passIndex int, outSize common.Size, viewport common.Viewport, frameCount uint64, direction FrameDirection, sizes []common.Size) {
	storage := fc.storages[passIndex]
	meta := art.Reflection.Meta

	for u, vm := range meta.UniqueMeta {
		switch u {
		case reflect.SemanticMVP:
			storage.WriteMat4(vm.MemberOffset, fc.lastMVP)
		case reflect.SemanticOutput:
			writeSizeVec4(storage, vm.MemberOffset, outSize)
		case reflect.SemanticFinalViewport:
			writeSizeVec4(storage, vm.MemberOffset, viewport.Size())
		case reflect.SemanticFrameCount:
			storage.WriteUint(vm.MemberOffset, uint32(effectiveFrameCount(frameCount, art.Config.FrameCountMod)))
		case reflect.SemanticFrameDirection:
			storage.WriteInt(vm.MemberOffset, int32(direction))
		}
	}

	for name, vm := range meta.ParameterMeta {
		storage.WriteFloat(vm.MemberOffset, float32(fc.parameters[name]))
	}

	for sem, tsm := range meta.TextureSizeMeta {
		writeSizeVec4(storage, tsm.MemberOffset, fc.textureSizeOf(sem, passIndex, sizes))
	}
}

func (fc *FilterChain) textureSizeOf(sem reflect.Semantic, passIndex int, sizes []common.Size) common.Size {
	switch sem.Kind {
	case reflect.TextureOriginal, reflect.TextureOriginalHistory:
		return fc.currentInputSize
	case reflect.TextureSource:
		if passIndex == 0 {
			return fc.currentInputSize
		}
		return sizes[passIndex-1]
	case reflect.TexturePassOutput:
		if sem.Index >= 0 && sem.Index < len(sizes) {
			return sizes[sem.Index]
		}
	case reflect.TexturePassFeedback:
		if sem.Index >= 0 && sem.Index < len(fc.prevSizes) {
			return fc.prevSizes[sem.Index]
		}
	case reflect.TextureUser:
		if sem.Index >= 0 && sem.Index < len(fc.lutSizes) {
			return fc.lutSizes[sem.Index]
		}
	}
	return common.Size{Width: 1, Height: 1}
}

func writeSizeVec4(storage *UniformStorage, offset reflect.MemberOffset, size common.Size) {
	storage.WriteVec4(offset, float32(size.Width), float32(size.Height), recip(size.Width), recip(size.Height))
}

func recip(v uint32) float32 {
	if v == 0 {
		return 0
	}
	return 1 / float32(v)
}

// ID uniquely identifies this chain instance, useful for a host juggling
// several chains at once to tell their log lines and poisoned-chain
// diagnostics apart.
func (fc *FilterChain) ID() uuid.UUID { return fc.id }

// SetParameter overrides a named float parameter, returning its previous
// value and whether it had one (spec.md §6.1 "Option<previous_value>").
func (fc *FilterChain) SetParameter(name string, value float64) (float64, bool) {
	prev, existed := fc.parameters[name]
	fc.parameters[name] = value
	return prev, existed
}

func (fc *FilterChain) GetParameter(name string) (float64, bool) {
	v, ok := fc.parameters[name]
	return v, ok
}

func (fc *FilterChain) ParametersCount() int { return len(fc.parameters) }
