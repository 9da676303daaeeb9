package preset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shaderforge/slangchain/common"
)

// Stringify renders a ShaderPreset back to .slangp text. Paths are emitted
// relative to BasePath where possible so that Parse(Stringify(p)) produces
// the same tree regardless of where the round-trip happens to run
// (testable property 1, spec.md §8).
func Stringify(p *ShaderPreset) string {
	var b strings.Builder

	fmt.Fprintf(&b, "shader_count = %d\n", p.ShaderCount)
	if p.FeedbackPass != nil {
		fmt.Fprintf(&b, "feedback_pass = %d\n", *p.FeedbackPass)
	}

	for _, pass := range p.Shaders {
		i := pass.ID
		fmt.Fprintf(&b, "shader%d = %s\n", i, relOrAbs(p.BasePath, pass.Name))
		if pass.HasAlias() {
			fmt.Fprintf(&b, "alias%d = %s\n", i, pass.Alias)
		}
		fmt.Fprintf(&b, "filter_linear%d = %s\n", i, boolStr(pass.Filter == common.FilterLinear))
		fmt.Fprintf(&b, "wrap_mode%d = %s\n", i, wrapModeStr(pass.WrapMode))
		if pass.FrameCountMod != 0 {
			fmt.Fprintf(&b, "frame_count_mod%d = %d\n", i, pass.FrameCountMod)
		}
		fmt.Fprintf(&b, "srgb_framebuffer%d = %s\n", i, boolStr(pass.SRGBFramebuffer))
		fmt.Fprintf(&b, "float_framebuffer%d = %s\n", i, boolStr(pass.FloatFramebuffer))
		fmt.Fprintf(&b, "mipmap_input%d = %s\n", i, boolStr(pass.MipmapInput))
		fmt.Fprintf(&b, "scale_type_x%d = %s\n", i, scaleKindStr(pass.Scaling.X.Kind))
		fmt.Fprintf(&b, "scale_type_y%d = %s\n", i, scaleKindStr(pass.Scaling.Y.Kind))
		fmt.Fprintf(&b, "scale_x%d = %s\n", i, strconv.FormatFloat(pass.Scaling.X.Factor, 'g', -1, 64))
		fmt.Fprintf(&b, "scale_y%d = %s\n", i, strconv.FormatFloat(pass.Scaling.Y.Factor, 'g', -1, 64))
	}

	if len(p.Textures) > 0 {
		names := make([]string, len(p.Textures))
		for i, t := range p.Textures {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, "textures = %s\n", strings.Join(names, ";"))
		for _, t := range p.Textures {
			fmt.Fprintf(&b, "%s = %s\n", t.Name, relOrAbs(p.BasePath, t.Path))
			fmt.Fprintf(&b, "%s_linear = %s\n", t.Name, boolStr(t.Filter == common.FilterLinear))
			fmt.Fprintf(&b, "%s_wrap_mode = %s\n", t.Name, wrapModeStr(t.WrapMode))
			fmt.Fprintf(&b, "%s_mipmap = %s\n", t.Name, boolStr(t.Mipmap))
		}
	}

	if len(p.Parameters) > 0 {
		names := make([]string, len(p.Parameters))
		for i, param := range p.Parameters {
			names[i] = param.Name
		}
		fmt.Fprintf(&b, "parameters = %s\n", strings.Join(names, ";"))
		for _, param := range p.Parameters {
			fmt.Fprintf(&b, "%s = %s\n", param.Name, strconv.FormatFloat(param.Value, 'g', -1, 64))
		}
	}

	return b.String()
}

func relOrAbs(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func wrapModeStr(w common.WrapMode) string {
	switch w {
	case common.WrapModeClampToEdge:
		return "clamp_to_edge"
	case common.WrapModeRepeat:
		return "repeat"
	case common.WrapModeMirroredRepeat:
		return "mirrored_repeat"
	default:
		return "clamp_to_border"
	}
}

func scaleKindStr(k common.ScaleKind) string {
	switch k {
	case common.ScaleViewport:
		return "viewport"
	case common.ScaleAbsolute:
		return "absolute"
	default:
		return "source"
	}
}
