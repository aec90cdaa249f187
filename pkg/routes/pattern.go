package routes

import (
	"regexp"
	"strings"

	"github.com/vango-dev/edgerules/internal/errors"
)

var (
	// [id], [id:int], [...slug]
	bracketRe = regexp.MustCompile(`^\[(\.\.\.)?([A-Za-z_][\w-]*)(?::(\w+))?\]$`)

	// _slug___
	underscoreCatchAllRe = regexp.MustCompile(`^_(\w+?)___$`)

	// _id_
	underscoreParamRe = regexp.MustCompile(`^_(\w+?)_$`)
)

// ParsePattern splits a route pattern into segments.
// A missing leading slash is added and a trailing slash is ignored, so
// "team/[id]/" and "/team/[id]" are equivalent. "/" has no segments.
func ParsePattern(pattern string) ([]Segment, error) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return nil, errors.New("E103").WithDetail("empty pattern")
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, nil
	}

	parts := strings.Split(p, "/")
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, ok := parseSegment(part)
		if !ok {
			return nil, errors.New("E103").WithDetailf("malformed segment %q in %q", part, pattern)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(part string) (Segment, bool) {
	if part == "" {
		return Segment{}, false
	}

	if m := bracketRe.FindStringSubmatch(part); m != nil {
		if m[1] != "" {
			return CatchAllSegment(m[2]), true
		}
		return ParamSegment(m[2]), true
	}
	// Brackets anywhere else are a typo, not literal text.
	if strings.ContainsAny(part, "[]") {
		return Segment{}, false
	}

	if m := underscoreCatchAllRe.FindStringSubmatch(part); m != nil {
		return CatchAllSegment(m[1]), true
	}
	if m := underscoreParamRe.FindStringSubmatch(part); m != nil {
		return ParamSegment(m[1]), true
	}

	return LiteralSegment(part), true
}

// HasCaptures reports whether any segment is dynamic.
func HasCaptures(segs []Segment) bool {
	for _, s := range segs {
		if s.Dynamic() {
			return true
		}
	}
	return false
}

// JoinLiterals renders literal segments as a URL path with a leading slash.
func JoinLiterals(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Value
	}
	return "/" + strings.Join(parts, "/")
}
