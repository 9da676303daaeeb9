package reflect

import "strconv"

// uniqueBuiltinNames are the implicit builtins recognized by exact name
// even when absent from the chain's explicit semantic map (spec.md §4.3,
// last paragraph).
var uniqueBuiltinNames = map[string]UniqueSemantics{
	"MVP":               SemanticMVP,
	"OutputSize":        SemanticOutput,
	"FinalViewportSize": SemanticFinalViewport,
	"FrameCount":        SemanticFrameCount,
	"FrameDirection":    SemanticFrameDirection,
}

// Reflect classifies a pass's vertex and fragment introspections against
// the chain-wide semantics, producing a ShaderReflection (spec.md §4.3).
// Either introspection may be nil if that stage declares no UBO/push/samplers.
func Reflect(vertex, fragment *StageIntrospection, semantics *ShaderSemantics) (*ShaderReflection, error) {
	refl := &ShaderReflection{Meta: newBindingMeta()}

	ubo, err := reflectUBO(vertex, fragment)
	if err != nil {
		return nil, err
	}
	refl.UBO = ubo
	refl.PushConstant = reflectPush(vertex, fragment)

	members := mergeMembers(vertex, fragment)
	for name, m := range members {
		if err := classifyMember(refl, semantics, name, m); err != nil {
			return nil, err
		}
	}

	samplers := mergeSamplers(vertex, fragment)
	for name, binding := range samplers {
		classifySampler(refl, semantics, name, binding)
	}

	if refl.PushConstant != nil && refl.PushConstant.Size > MaxPushBufferSize {
		return nil, ErrPushBufferTooLarge
	}
	if len(refl.Meta.TextureMeta) > MaxBindingsCount {
		return nil, ErrTooManyBindings
	}

	return refl, nil
}

func reflectUBO(vertex, fragment *StageIntrospection) (*UboReflection, error) {
	var ubo *UboReflection
	if vertex != nil && vertex.UBO != nil {
		ubo = &UboReflection{Binding: vertex.UBO.Binding, Size: vertex.UBO.Size, StageMask: StageVertex}
	}
	if fragment != nil && fragment.UBO != nil {
		if ubo == nil {
			ubo = &UboReflection{Binding: fragment.UBO.Binding, Size: fragment.UBO.Size, StageMask: StageFragment}
		} else {
			if ubo.Binding != fragment.UBO.Binding {
				return nil, ErrUBOStageMismatch
			}
			ubo.StageMask |= StageFragment
			if fragment.UBO.Size > ubo.Size {
				ubo.Size = fragment.UBO.Size
			}
		}
	}
	return ubo, nil
}

func reflectPush(vertex, fragment *StageIntrospection) *PushReflection {
	var push *PushReflection
	if vertex != nil && vertex.Push != nil {
		push = &PushReflection{Size: vertex.Push.Size, StageMask: StageVertex}
	}
	if fragment != nil && fragment.Push != nil {
		if push == nil {
			push = &PushReflection{Size: fragment.Push.Size, StageMask: StageFragment}
		} else {
			push.StageMask |= StageFragment
			if fragment.Push.Size > push.Size {
				push.Size = fragment.Push.Size
			}
		}
	}
	return push
}

// mergedMember is one uniform name's combined view across the UBO and push
// constant blocks of both stages.
type mergedMember struct {
	offset MemberOffset
	typ    UniformType
	stages BindingStage
}

func mergeMembers(vertex, fragment *StageIntrospection) map[string]mergedMember {
	members := make(map[string]mergedMember)

	addUBO := func(blk *BlockInfo, stage BindingStage) {
		if blk == nil {
			return
		}
		for _, m := range blk.Members {
			off := m.Offset
			entry := members[m.Name]
			entry.typ = m.Type
			entry.offset.UBO = &off
			entry.stages |= stage
			members[m.Name] = entry
		}
	}
	addPush := func(blk *BlockInfo, stage BindingStage) {
		if blk == nil {
			return
		}
		for _, m := range blk.Members {
			off := m.Offset
			entry := members[m.Name]
			entry.typ = m.Type
			entry.offset.Push = &off
			entry.stages |= stage
			members[m.Name] = entry
		}
	}

	if vertex != nil {
		addUBO(vertex.UBO, StageVertex)
		addPush(vertex.Push, StageVertex)
	}
	if fragment != nil {
		addUBO(fragment.UBO, StageFragment)
		addPush(fragment.Push, StageFragment)
	}

	return members
}

func mergeSamplers(vertex, fragment *StageIntrospection) map[string]SamplerInfo {
	samplers := make(map[string]SamplerInfo)
	if vertex != nil {
		for _, s := range vertex.Samplers {
			samplers[s.Name] = s
		}
	}
	if fragment != nil {
		for _, s := range fragment.Samplers {
			samplers[s.Name] = s
		}
	}
	return samplers
}

// classifyMember runs the name-matching algorithm for one non-sampler
// uniform member (spec.md §4.3): explicit semantic map, then implicit
// builtins, then suffix-stripped texture-size probing, then fall through
// to a plain user parameter.
func classifyMember(refl *ShaderReflection, semantics *ShaderSemantics, name string, m mergedMember) error {
	if sem, ok := semantics.UniformSemantics[name]; ok {
		return recordUniform(refl, name, m, sem)
	}

	if u, ok := uniqueBuiltinNames[name]; ok {
		if err := checkType(name, u.BindingType(), m.typ); err != nil {
			return err
		}
		refl.Meta.UniqueMeta[u] = VariableMeta{MemberOffset: m.offset, Size: typeByteSize(m.typ), Name: name}
		return nil
	}

	if sem, ok := probeTextureSize(name); ok {
		if err := checkType(name, TypeVec4, m.typ); err != nil {
			return err
		}
		refl.Meta.TextureSizeMeta[sem] = TextureSizeMeta{MemberOffset: m.offset, StageMask: m.stages, Name: name}
		return nil
	}

	refl.Meta.ParameterMeta[name] = VariableMeta{MemberOffset: m.offset, Size: typeByteSize(m.typ), Name: name}
	return nil
}

// classifySampler runs the same name-matching algorithm for a sampler
// binding, consulting texture_semantics instead of uniform_semantics and
// probing texture_name() prefixes instead of size_uniform_name() ones.
func classifySampler(refl *ShaderReflection, semantics *ShaderSemantics, name string, binding SamplerInfo) {
	if sem, ok := semantics.TextureSemantics[name]; ok {
		refl.Meta.TextureMeta[sem] = TextureBinding{Binding: binding.Binding}
		return
	}
	if sem, ok := probeTextureName(name); ok {
		refl.Meta.TextureMeta[sem] = TextureBinding{Binding: binding.Binding}
		return
	}
	// Unrecognized sampler names still occupy a slot; they never receive
	// chain-driven binding updates.
	refl.Meta.TextureMeta[Semantic{Kind: TextureUser, Index: int(binding.Binding)}] = TextureBinding{Binding: binding.Binding}
}

// recordUniform classifies a member already resolved via the chain's
// explicit semantic map (spec.md §4.3 step 1).
func recordUniform(refl *ShaderReflection, name string, m mergedMember, sem UniformSemantic) error {
	if sem.IsTexture {
		if err := checkType(name, TypeVec4, m.typ); err != nil {
			return err
		}
		refl.Meta.TextureSizeMeta[sem.Texture] = TextureSizeMeta{MemberOffset: m.offset, StageMask: m.stages, Name: name}
		return nil
	}
	if err := checkType(name, sem.Unique.BindingType(), m.typ); err != nil {
		return err
	}
	refl.Meta.UniqueMeta[sem.Unique] = VariableMeta{MemberOffset: m.offset, Size: typeByteSize(m.typ), Name: name}
	return nil
}

// probeTextureSize implements the suffix-stripping scan for *Size uniform
// names in the canonical probe order (spec.md §4.3 step 2).
func probeTextureSize(name string) (Semantic, bool) {
	return probe(name, TextureSemantics.SizeUniformName)
}

// probeTextureName is the sampler-name counterpart of probeTextureSize.
func probeTextureName(name string) (Semantic, bool) {
	return probe(name, TextureSemantics.TextureName)
}

func probe(name string, prefixOf func(TextureSemantics) string) (Semantic, bool) {
	for _, kind := range ProbeOrder {
		prefix := prefixOf(kind)
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		rest := name[len(prefix):]
		if !kind.IsIndexed() {
			if rest == "" {
				return Semantic{Kind: kind, Index: 0}, true
			}
			continue
		}
		if rest == "" {
			continue
		}
		index, err := strconv.Atoi(rest)
		if err != nil || index < 0 {
			continue
		}
		return Semantic{Kind: kind, Index: index}, true
	}
	return Semantic{}, false
}

func checkType(binding string, expected, found UniformType) error {
	if expected != found {
		return &InvalidTypeError{Binding: binding, Expected: expected, Found: found}
	}
	return nil
}

func typeByteSize(t UniformType) uint32 {
	switch t {
	case TypeMat4:
		return 64
	case TypeVec4:
		return 16
	default:
		return 4
	}
}
