package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/core"
)

// Parse reads and parses a .slangp file at path, resolving every relative
// shader/texture path against path's directory.
func Parse(path string) (*ShaderPreset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	baseDir := filepath.Dir(abs)

	kv := newRawKV()
	if err := parseLines(abs, kv); err != nil {
		return nil, err
	}

	shaderCountStr, ok := kv.get("shader_count")
	if !ok {
		return nil, fmt.Errorf("preset: missing required key shader_count")
	}
	shaderCount, err := strconv.Atoi(strings.TrimSpace(shaderCountStr))
	if err != nil {
		return nil, fmt.Errorf("preset: invalid shader_count %q: %w", shaderCountStr, err)
	}

	preset := &ShaderPreset{
		ShaderCount: shaderCount,
		BasePath:    baseDir,
	}

	if fbStr, ok := kv.get("feedback_pass"); ok {
		fb, err := strconv.Atoi(strings.TrimSpace(fbStr))
		if err != nil {
			return nil, fmt.Errorf("preset: invalid feedback_pass %q: %w", fbStr, err)
		}
		preset.FeedbackPass = &fb
	}

	passes, err := buildPasses(kv, baseDir, shaderCount)
	if err != nil {
		return nil, err
	}
	preset.Shaders = passes

	if err := checkUniqueAliases(passes); err != nil {
		return nil, err
	}

	textures, err := buildTextures(kv, baseDir)
	if err != nil {
		return nil, err
	}
	preset.Textures = textures

	params, err := buildParameters(kv)
	if err != nil {
		return nil, err
	}
	preset.Parameters = params

	return preset, nil
}

func buildPasses(kv *rawKV, baseDir string, shaderCount int) ([]ShaderPassConfig, error) {
	passes := make([]ShaderPassConfig, 0, shaderCount)
	for i := 0; i < shaderCount; i++ {
		rawPath, ok := kv.get(fmt.Sprintf("shader%d", i))
		if !ok {
			return nil, fmt.Errorf("%w: shader%d", ErrMissingShader, i)
		}
		resolved, err := resolvePath(baseDir, rawPath)
		if err != nil {
			return nil, err
		}

		pass := ShaderPassConfig{
			ID:       i,
			Name:     resolved,
			Scaling:  common.DefaultScale2D(),
			WrapMode: common.WrapModeClampToBorder,
			Filter:   common.FilterNearest,
		}

		if alias, ok := kv.get(fmt.Sprintf("alias%d", i)); ok {
			pass.Alias = strings.TrimSpace(alias)
		}
		if v, ok := kv.get(fmt.Sprintf("filter_linear%d", i)); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: filter_linear%d: %w", i, err)
			}
			pass.Filter = common.FilterModeFromBool(b)
		}
		if v, ok := kv.get(fmt.Sprintf("wrap_mode%d", i)); ok {
			wm, err := common.WrapModeFromString(v)
			if err != nil {
				return nil, fmt.Errorf("preset: wrap_mode%d: %w", i, err)
			}
			pass.WrapMode = wm
		}
		if v, ok := kv.get(fmt.Sprintf("frame_count_mod%d", i)); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("preset: frame_count_mod%d: %w", i, err)
			}
			pass.FrameCountMod = n
		}
		if v, ok := kv.get(fmt.Sprintf("srgb_framebuffer%d", i)); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: srgb_framebuffer%d: %w", i, err)
			}
			pass.SRGBFramebuffer = b
		}
		if v, ok := kv.get(fmt.Sprintf("float_framebuffer%d", i)); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: float_framebuffer%d: %w", i, err)
			}
			pass.FloatFramebuffer = b
		}
		if v, ok := kv.get(fmt.Sprintf("mipmap_input%d", i)); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: mipmap_input%d: %w", i, err)
			}
			pass.MipmapInput = b
		}

		scaling, err := resolveScaling(kv, i)
		if err != nil {
			return nil, err
		}
		pass.Scaling = scaling

		passes = append(passes, pass)
	}
	return passes, nil
}

func resolveScaling(kv *rawKV, i int) (common.Scale2D, error) {
	scaling := common.DefaultScale2D()

	if v, ok := kv.get(fmt.Sprintf("scale_type%d", i)); ok {
		k, err := common.ScaleKindFromString(v)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale_type%d: %w", i, err)
		}
		scaling.X.Kind, scaling.Y.Kind = k, k
	}
	if v, ok := kv.get(fmt.Sprintf("scale%d", i)); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale%d: %w", i, err)
		}
		scaling.X.Factor, scaling.Y.Factor = f, f
	}
	if v, ok := kv.get(fmt.Sprintf("scale_type_x%d", i)); ok {
		k, err := common.ScaleKindFromString(v)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale_type_x%d: %w", i, err)
		}
		scaling.X.Kind = k
	}
	if v, ok := kv.get(fmt.Sprintf("scale_type_y%d", i)); ok {
		k, err := common.ScaleKindFromString(v)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale_type_y%d: %w", i, err)
		}
		scaling.Y.Kind = k
	}
	if v, ok := kv.get(fmt.Sprintf("scale_x%d", i)); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale_x%d: %w", i, err)
		}
		scaling.X.Factor = f
	}
	if v, ok := kv.get(fmt.Sprintf("scale_y%d", i)); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return scaling, fmt.Errorf("preset: scale_y%d: %w", i, err)
		}
		scaling.Y.Factor = f
	}
	return scaling, nil
}

func checkUniqueAliases(passes []ShaderPassConfig) error {
	seen := make(map[string]int)
	for _, p := range passes {
		if !p.HasAlias() {
			continue
		}
		if other, ok := seen[p.Alias]; ok {
			return fmt.Errorf("%w: %q used by pass %d and pass %d", ErrDuplicateAlias, p.Alias, other, p.ID)
		}
		seen[p.Alias] = p.ID
	}
	return nil
}

func buildTextures(kv *rawKV, baseDir string) ([]TextureConfig, error) {
	names := splitRoster(firstOr(kv, "textures", ""))
	textures := make([]TextureConfig, 0, len(names))
	for _, name := range names {
		rawPath, ok := kv.get(name)
		if !ok {
			return nil, fmt.Errorf("preset: texture %q has no path key", name)
		}
		resolved, err := resolvePath(baseDir, rawPath)
		if err != nil {
			return nil, err
		}
		tex := TextureConfig{
			Name:     name,
			Path:     resolved,
			WrapMode: common.WrapModeClampToBorder,
			Filter:   common.FilterNearest,
		}
		if v, ok := kv.get(name + "_linear"); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: %s_linear: %w", name, err)
			}
			tex.Filter = common.FilterModeFromBool(b)
		}
		if v, ok := kv.get(name + "_wrap_mode"); ok {
			wm, err := common.WrapModeFromString(v)
			if err != nil {
				return nil, fmt.Errorf("preset: %s_wrap_mode: %w", name, err)
			}
			tex.WrapMode = wm
		}
		if v, ok := kv.get(name + "_mipmap"); ok {
			b, err := parseBool(v)
			if err != nil {
				return nil, fmt.Errorf("preset: %s_mipmap: %w", name, err)
			}
			tex.Mipmap = b
		}
		textures = append(textures, tex)
	}
	return textures, nil
}

func buildParameters(kv *rawKV) ([]ParameterConfig, error) {
	names := splitRoster(firstOr(kv, "parameters", ""))
	params := make([]ParameterConfig, 0, len(names))
	for _, name := range names {
		v, ok := kv.get(name)
		if !ok {
			core.LogWarn("preset: parameter %q declared but has no override value; skipping", name)
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("preset: parameter %q: %w", name, err)
		}
		params = append(params, ParameterConfig{Name: name, Value: f})
	}
	return params, nil
}

func firstOr(kv *rawKV, key, def string) string {
	if v, ok := kv.get(key); ok {
		return v
	}
	return def
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// resolvePath resolves rawPath relative to baseDir, canonicalizes it, and
// verifies the file exists (spec.md §4.1 step 3).
func resolvePath(baseDir, rawPath string) (string, error) {
	var joined string
	if filepath.IsAbs(rawPath) {
		joined = rawPath
	} else {
		joined = filepath.Join(baseDir, rawPath)
	}
	clean, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrShaderNotFound, joined)
		}
		return "", &PathError{Path: joined, Err: err}
	}
	if _, err := os.Stat(clean); err != nil {
		return "", fmt.Errorf("%w: %s", ErrShaderNotFound, clean)
	}
	return clean, nil
}
