package chain

import (
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

// FrameDirection is the sign applied to the FrameDirection uniform,
// conventionally +1 for normal playback and -1 for rewind.
type FrameDirection int32

const (
	FrameForward  FrameDirection = 1
	FrameBackward FrameDirection = -1
)

// computeOutputSizes resolves every pass's output size in order, feeding
// pass i's output forward as pass i+1's Source-axis reference (spec.md
// §4.6 "Output size"; invariant 3: "Pass N's Source sampler equals pass
// N-1's output").
func computeOutputSizes(passes []preset.ShaderPassConfig, inputSize common.Size, viewport common.Viewport) []common.Size {
	sizes := make([]common.Size, len(passes))
	source := inputSize
	for i, p := range passes {
		out := p.Scaling.Resolve(source, viewport)
		sizes[i] = out
		source = out
	}
	return sizes
}

// maxHistoryIndex scans every pass's reflection for the highest
// OriginalHistory index referenced anywhere in the chain, which sizes the
// history ring (capacity = maxHistoryIndex+1). The chain pushes each
// frame's input before any pass samples the ring, so At(0) is always this
// frame's input and At(maxHistoryIndex) is the oldest frame a pass can
// reference; a ring of maxHistoryIndex+1 slots holds every index a pass
// can ask for, index 0 included.
func maxHistoryIndex(artifacts []reflect.ShaderPassArtifact) int {
	max := 0
	for _, a := range artifacts {
		if a.Reflection == nil {
			continue
		}
		for sem := range a.Reflection.Meta.TextureMeta {
			if sem.Kind == reflect.TextureOriginalHistory && sem.Index > max {
				max = sem.Index
			}
		}
	}
	return max
}

// effectiveFrameCount applies a pass's frame_count_mod (spec.md invariant 7).
func effectiveFrameCount(frameCount uint64, mod uint64) uint64 {
	if mod == 0 {
		return frameCount
	}
	return frameCount % mod
}
