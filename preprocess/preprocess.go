package preprocess

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaderforge/slangchain/common"
)

var (
	reInclude   = regexp.MustCompile(`^#include\s+"([^"]+)"`)
	rePragma    = regexp.MustCompile(`^#pragma\s+(\S+)\s*(.*)$`)
	reParameter = regexp.MustCompile(`^(\S+)\s+"([^"]*)"\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+(\S+))?\s*$`)
)

// sourceLine is one physical line of the fully #include-expanded source,
// tagged with where it actually came from so the output can carry #line
// markers for diagnostics (spec.md §4.2 step 3).
type sourceLine struct {
	Text string
	File string
	Line int
}

// stage is the routing state for a code line: which of the two output
// buffers (or both) it belongs to.
type stage int

const (
	stageBoth stage = iota
	stageVertex
	stageFragment
)

// Load preprocesses the .slang file at path: it resolves #include
// directives recursively, extracts #pragma metadata, and separates the
// result into vertex and fragment source text.
func Load(path string) (*ShaderSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	lines, err := flatten(abs, map[string]bool{})
	if err != nil {
		return nil, err
	}

	src := &ShaderSource{
		Name:       filepath.Base(abs),
		Format:     common.ImageFormatR8G8B8A8Unorm,
		Parameters: make(map[string]ShaderParameter),
	}

	var vertexBuf, fragmentBuf strings.Builder
	var lastVertexOrigin, lastFragmentOrigin sourceLine
	haveVertexOrigin, haveFragmentOrigin := false, false
	formatSeen := false
	cur := stageBoth

	emit := func(buf *strings.Builder, lastOrigin *sourceLine, have *bool, l sourceLine) {
		if !*have || l.File != lastOrigin.File || l.Line != lastOrigin.Line+1 {
			fmt.Fprintf(buf, "#line %d %q\n", l.Line, l.File)
		}
		buf.WriteString(l.Text)
		buf.WriteByte('\n')
		*lastOrigin = l
		*have = true
	}

	for _, l := range lines {
		trimmed := strings.TrimSpace(l.Text)
		if m := rePragma.FindStringSubmatch(trimmed); m != nil {
			directive, rest := m[1], strings.TrimSpace(m[2])
			switch directive {
			case "stage":
				switch rest {
				case "vertex":
					cur = stageVertex
				case "fragment":
					cur = stageFragment
				default:
					return nil, &DirectiveError{Path: l.File, Line: l.Line, Err: fmt.Errorf("unknown stage %q", rest)}
				}
			case "format":
				if formatSeen {
					return nil, &DirectiveError{Path: l.File, Line: l.Line, Err: ErrMultipleFormatPragma}
				}
				f, err := common.ImageFormatFromString(rest)
				if err != nil {
					return nil, &DirectiveError{Path: l.File, Line: l.Line, Err: err}
				}
				src.Format = f
				formatSeen = true
			case "name":
				src.Name = unquoteName(rest)
			case "parameter":
				if err := parseParameterDirective(src, rest, l); err != nil {
					return nil, err
				}
			default:
				// Unknown pragmas (e.g. backend-specific hints) pass through
				// untouched to both stages, same as ordinary code.
				if cur == stageBoth || cur == stageVertex {
					emit(&vertexBuf, &lastVertexOrigin, &haveVertexOrigin, l)
				}
				if cur == stageBoth || cur == stageFragment {
					emit(&fragmentBuf, &lastFragmentOrigin, &haveFragmentOrigin, l)
				}
			}
			continue
		}

		if cur == stageBoth || cur == stageVertex {
			emit(&vertexBuf, &lastVertexOrigin, &haveVertexOrigin, l)
		}
		if cur == stageBoth || cur == stageFragment {
			emit(&fragmentBuf, &lastFragmentOrigin, &haveFragmentOrigin, l)
		}
	}

	src.Vertex = vertexBuf.String()
	src.Fragment = fragmentBuf.String()
	return src, nil
}

func unquoteName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func parseParameterDirective(src *ShaderSource, rest string, l sourceLine) error {
	m := reParameter.FindStringSubmatch(rest)
	if m == nil {
		return &DirectiveError{Path: l.File, Line: l.Line, Err: fmt.Errorf("%w: %q", ErrMalformedParameter, rest)}
	}
	id := m[1]
	desc := m[2]
	initial, err1 := strconv.ParseFloat(m[3], 64)
	min, err2 := strconv.ParseFloat(m[4], 64)
	max, err3 := strconv.ParseFloat(m[5], 64)
	step := 0.0
	var err4 error
	if m[6] != "" {
		step, err4 = strconv.ParseFloat(m[6], 64)
	}
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return &DirectiveError{Path: l.File, Line: l.Line, Err: fmt.Errorf("%w: %q", ErrMalformedParameter, rest)}
	}

	param := ShaderParameter{ID: id, Description: desc, Initial: initial, Min: min, Max: max, Step: step}
	if existing, ok := src.Parameters[id]; ok {
		if existing != param {
			return &DirectiveError{Path: l.File, Line: l.Line, Err: fmt.Errorf("%w: %q", ErrParameterDisagrees, id)}
		}
		return nil
	}
	src.Parameters[id] = param
	return nil
}

// flatten recursively expands #include directives starting from path,
// detecting cycles via the canonical path of files currently on the
// include stack (self-include, directly or transitively, is an error).
func flatten(path string, onStack map[string]bool) ([]sourceLine, error) {
	canon, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIncludeNotFound, path)
	}
	if onStack[canon] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, canon)
	}
	onStack[canon] = true
	defer delete(onStack, canon)

	f, err := os.Open(canon)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIncludeNotFound, canon)
	}
	defer f.Close()

	var out []sourceLine
	scanner := bufio.NewScanner(f)
	lineNo := 0
	dir := filepath.Dir(canon)
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if m := reInclude.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
			includePath := filepath.Join(dir, m[1])
			included, err := flatten(includePath, onStack)
			if err != nil {
				return nil, err
			}
			out = append(out, included...)
			continue
		}
		out = append(out, sourceLine{Text: text, File: canon, Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
