package reflect

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/core"
)

// ExecIntrospector extracts binding layout from compiled SPIR-V by shelling
// out to spirv-cross --reflect and parsing its JSON, mirroring the gio
// convertshaders spirvcross.go parseMetadata shape: a "types" table resolved
// by id, plus "inputs"/"textures"/"ubos"/"push_constants" arrays that
// reference those ids.
type ExecIntrospector struct {
	// WorkDir is where the temp .spv file is written. Defaults to
	// os.TempDir() when empty.
	WorkDir string
}

var _ Introspector = (*ExecIntrospector)(nil)

type crossType struct {
	Name    string        `json:"name"`
	Members []crossMember `json:"members"`
}

type crossUBO struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Binding uint32 `json:"binding"`
	Block   struct {
		Size uint32 `json:"size"`
	} `json:"block_size"`
}

type crossPush struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type crossTexture struct {
	Name    string `json:"name"`
	Binding uint32 `json:"binding"`
}

type crossMember struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset uint32 `json:"offset"`
}

type crossReflection struct {
	Types         map[string]crossType `json:"types"`
	Textures      []crossTexture       `json:"textures"`
	UBOs          []crossUBO           `json:"ubos"`
	PushConstants []crossPush          `json:"push_constants"`
}

func (e *ExecIntrospector) Introspect(module compiler.Module) (*StageIntrospection, error) {
	dir := e.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	path, err := e.writeModule(dir, module)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	if _, err := exec.LookPath("spirv-cross"); err != nil {
		return nil, fmt.Errorf("reflect: spirv-cross not found on PATH: %w", err)
	}

	out, err := exec.Command("spirv-cross", "--reflect", path).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("reflect: spirv-cross --reflect failed: %s: %w", out, err)
	}

	var refl crossReflection
	if err := json.Unmarshal(out, &refl); err != nil {
		return nil, fmt.Errorf("reflect: parse spirv-cross reflection JSON: %w", err)
	}

	result := &StageIntrospection{}

	for _, ubo := range refl.UBOs {
		result.UBO = &BlockInfo{
			Binding: ubo.Binding,
			Size:    ubo.Block.Size,
			Members: e.members(refl, ubo.Type),
		}
		break // a pass declares at most one UBO
	}

	for _, push := range refl.PushConstants {
		members := e.members(refl, push.Type)
		var size uint32
		for _, m := range members {
			size = m.Offset + typeSize(m.Type)
		}
		result.Push = &BlockInfo{Size: size, Members: members}
		break
	}

	for _, tex := range refl.Textures {
		result.Samplers = append(result.Samplers, SamplerInfo{Name: tex.Name, Binding: tex.Binding})
	}

	core.LogDebug("introspected %d SPIR-V words: ubo=%v push=%v samplers=%d", len(module.Words), result.UBO != nil, result.Push != nil, len(result.Samplers))
	return result, nil
}

func (e *ExecIntrospector) members(refl crossReflection, typeName string) []MemberInfo {
	t, ok := refl.Types[typeName]
	if !ok {
		return nil
	}
	members := make([]MemberInfo, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, MemberInfo{Name: m.Name, Offset: m.Offset, Type: parseUniformType(m.Type)})
	}
	return members
}

func (e *ExecIntrospector) writeModule(dir string, module compiler.Module) (string, error) {
	f, err := os.CreateTemp(dir, "slangchain-reflect-*.spv")
	if err != nil {
		return "", fmt.Errorf("reflect: create temp SPIR-V file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4*len(module.Words))
	for i, w := range module.Words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	if _, err := f.Write(buf); err != nil {
		return "", fmt.Errorf("reflect: write temp SPIR-V file: %w", err)
	}
	return f.Name(), nil
}

// parseUniformType maps a spirv-cross GLSL type string to a UniformType.
func parseUniformType(glslType string) UniformType {
	switch glslType {
	case "mat4", "float4x4":
		return TypeMat4
	case "vec4", "float4":
		return TypeVec4
	case "uint", "uint1":
		return TypeUnsigned
	case "int", "int1":
		return TypeSigned
	default:
		return TypeFloat
	}
}

// typeSize returns the std140-aligned byte size of a spirv-cross type string.
func typeSize(glslType string) uint32 {
	switch glslType {
	case "mat4", "float4x4":
		return 64
	case "vec4", "float4":
		return 16
	case "uint", "uint1", "int", "int1", "float", "float1":
		return 4
	default:
		return 16
	}
}
