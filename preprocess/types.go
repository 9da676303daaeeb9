// Package preprocess resolves #include directives and extracts #pragma
// metadata from .slang shader sources, producing independent vertex and
// fragment text plus a parameter table (spec.md §4.2).
package preprocess

import (
	"sort"

	"github.com/shaderforge/slangchain/common"
)

// ShaderParameter is one #pragma parameter declaration.
type ShaderParameter struct {
	ID          string
	Description string
	Initial     float64
	Min         float64
	Max         float64
	Step        float64
}

// ShaderSource is the result of preprocessing one .slang file: separated
// vertex/fragment text, its declared output format, its parameter table,
// and its display name.
type ShaderSource struct {
	Vertex     string
	Fragment   string
	Name       string
	Format     common.ImageFormat
	Parameters map[string]ShaderParameter
}

// SortedParameterIDs returns the parameter ids in a fixed, deterministic
// order (spec.md §3: "iteration order must be deterministic for
// reproducibility" — Go map iteration is not, so every caller that needs a
// stable order goes through this instead of ranging over Parameters directly).
func (s *ShaderSource) SortedParameterIDs() []string {
	ids := make([]string, 0, len(s.Parameters))
	for id := range s.Parameters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
