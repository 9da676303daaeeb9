// Package common holds the leaf types shared by every other package in the
// chain: sizes, viewports, wrap/filter modes, and image formats. None of
// these carry behavior beyond small value-type helpers; everything that acts
// on them lives closer to where it is used (preset, reflect, chain).
package common

import "fmt"

// Size is an integer 2D extent in texels.
type Size struct {
	Width  uint32
	Height uint32
}

// Viewport is the caller's current render target extent.
type Viewport struct {
	X, Y          int32
	Width, Height uint32
}

// Size returns the viewport's extent as a Size.
func (v Viewport) Size() Size {
	return Size{Width: v.Width, Height: v.Height}
}

// WrapMode controls sampler addressing at UV edges.
type WrapMode int

const (
	WrapModeClampToBorder WrapMode = iota
	WrapModeClampToEdge
	WrapModeRepeat
	WrapModeMirroredRepeat
)

func WrapModeFromString(s string) (WrapMode, error) {
	switch s {
	case "", "clamp_to_border":
		return WrapModeClampToBorder, nil
	case "clamp_to_edge":
		return WrapModeClampToEdge, nil
	case "repeat":
		return WrapModeRepeat, nil
	case "mirrored_repeat":
		return WrapModeMirroredRepeat, nil
	default:
		return WrapModeClampToBorder, fmt.Errorf("unknown wrap mode %q", s)
	}
}

// FilterMode controls texture magnification/minification.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

func FilterModeFromBool(linear bool) FilterMode {
	if linear {
		return FilterLinear
	}
	return FilterNearest
}

// ImageFormat enumerates the formats the core understands, mirroring the
// subset a backend is required to support (spec.md §6.4).
type ImageFormat int

const (
	ImageFormatUnknown ImageFormat = iota
	ImageFormatR8Unorm
	ImageFormatR8G8Unorm
	ImageFormatR8G8B8A8Unorm
	ImageFormatR8G8B8A8Srgb
	ImageFormatA2B10G10R10Unorm
	ImageFormatR16Uint
	ImageFormatR16Sint
	ImageFormatR16Sfloat
	ImageFormatR16G16Uint
	ImageFormatR16G16Sint
	ImageFormatR16G16Sfloat
	ImageFormatR16G16B16A16Uint
	ImageFormatR16G16B16A16Sint
	ImageFormatR16G16B16A16Sfloat
	ImageFormatR32Uint
	ImageFormatR32Sint
	ImageFormatR32Sfloat
	ImageFormatR32G32Uint
	ImageFormatR32G32Sint
	ImageFormatR32G32Sfloat
	ImageFormatR32G32B32A32Uint
	ImageFormatR32G32B32A32Sint
	ImageFormatR32G32B32A32Sfloat
)

var imageFormatNames = map[string]ImageFormat{
	"UNKNOWN":              ImageFormatUnknown,
	"R8_UNORM":             ImageFormatR8Unorm,
	"R8G8_UNORM":           ImageFormatR8G8Unorm,
	"R8G8B8A8_UNORM":       ImageFormatR8G8B8A8Unorm,
	"R8G8B8A8_SRGB":        ImageFormatR8G8B8A8Srgb,
	"A2B10G10R10_UNORM":    ImageFormatA2B10G10R10Unorm,
	"R16_UINT":             ImageFormatR16Uint,
	"R16_SINT":             ImageFormatR16Sint,
	"R16_SFLOAT":           ImageFormatR16Sfloat,
	"R16G16_UINT":          ImageFormatR16G16Uint,
	"R16G16_SINT":          ImageFormatR16G16Sint,
	"R16G16_SFLOAT":        ImageFormatR16G16Sfloat,
	"R16G16B16A16_UINT":    ImageFormatR16G16B16A16Uint,
	"R16G16B16A16_SINT":    ImageFormatR16G16B16A16Sint,
	"R16G16B16A16_SFLOAT":  ImageFormatR16G16B16A16Sfloat,
	"R32_UINT":             ImageFormatR32Uint,
	"R32_SINT":             ImageFormatR32Sint,
	"R32_SFLOAT":           ImageFormatR32Sfloat,
	"R32G32_UINT":          ImageFormatR32G32Uint,
	"R32G32_SINT":          ImageFormatR32G32Sint,
	"R32G32_SFLOAT":        ImageFormatR32G32Sfloat,
	"R32G32B32A32_UINT":    ImageFormatR32G32B32A32Uint,
	"R32G32B32A32_SINT":    ImageFormatR32G32B32A32Sint,
	"R32G32B32A32_SFLOAT":  ImageFormatR32G32B32A32Sfloat,
}

func ImageFormatFromString(s string) (ImageFormat, error) {
	if f, ok := imageFormatNames[s]; ok {
		return f, nil
	}
	return ImageFormatUnknown, fmt.Errorf("unknown image format %q", s)
}

func (f ImageFormat) String() string {
	for name, v := range imageFormatNames {
		if v == f && name != "UNKNOWN" {
			return name
		}
	}
	return "UNKNOWN"
}

// MipmapFlag indicates whether a sampled resource should build/use mips.
type MipmapFlag bool

// ScaleKind selects how a pass's output dimension is derived.
type ScaleKind int

const (
	ScaleSource ScaleKind = iota
	ScaleViewport
	ScaleAbsolute
)

func ScaleKindFromString(s string) (ScaleKind, error) {
	switch s {
	case "", "source":
		return ScaleSource, nil
	case "viewport":
		return ScaleViewport, nil
	case "absolute":
		return ScaleAbsolute, nil
	default:
		return ScaleSource, fmt.Errorf("unknown scale type %q", s)
	}
}

// ScaleAxis is one independent axis of a Scale2D.
type ScaleAxis struct {
	Kind   ScaleKind
	Factor float64
}

// Scale2D describes how a pass derives its output framebuffer size.
type Scale2D struct {
	X ScaleAxis
	Y ScaleAxis
}

// DefaultScale2D is the scale applied to a pass that specifies none: 1.0x
// the previous pass's (Source) size on both axes.
func DefaultScale2D() Scale2D {
	return Scale2D{
		X: ScaleAxis{Kind: ScaleSource, Factor: 1.0},
		Y: ScaleAxis{Kind: ScaleSource, Factor: 1.0},
	}
}

// Resolve computes one axis's output length in texels given the relevant
// source/viewport lengths, per spec.md §4.6. Zero or negative results fall
// back to 1.
func (a ScaleAxis) Resolve(sourceLen, viewportLen uint32) uint32 {
	var v float64
	switch a.Kind {
	case ScaleSource:
		v = float64(sourceLen) * a.Factor
	case ScaleViewport:
		v = float64(viewportLen) * a.Factor
	case ScaleAbsolute:
		v = a.Factor
	}
	var n int64
	if a.Kind == ScaleAbsolute {
		n = int64(a.Factor)
	} else {
		n = int64(ceil(v))
	}
	if n <= 0 {
		return 1
	}
	return uint32(n)
}

// Resolve computes the output Size for this Scale2D given the input image
// size and the current viewport.
func (s Scale2D) Resolve(input Size, viewport Viewport) Size {
	return Size{
		Width:  s.X.Resolve(input.Width, viewport.Width),
		Height: s.Y.Resolve(input.Height, viewport.Height),
	}
}

func ceil(f float64) float64 {
	i := float64(int64(f))
	if f > i {
		return i + 1
	}
	return i
}
