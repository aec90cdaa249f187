package routes

import (
	"fmt"
	"strings"

	"github.com/vango-dev/edgerules/internal/errors"
)

// DefaultRedirectStatus is used when a redirect does not declare a status.
const DefaultRedirectStatus = 301

// NotFoundPath is the path of the canonical not-found page.
const NotFoundPath = "/404"

// SegmentKind tells literal path text apart from captures.
type SegmentKind int

const (
	// Literal is fixed path text.
	Literal SegmentKind = iota
	// Param captures exactly one path segment.
	Param
	// CatchAll captures the rest of the path (a spread capture).
	CatchAll
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Param:
		return "param"
	case CatchAll:
		return "catch-all"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Segment is one "/"-separated part of a route path.
// Value is the literal text for Literal segments and the capture name otherwise.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// LiteralSegment returns a segment matching text exactly.
func LiteralSegment(text string) Segment {
	return Segment{Kind: Literal, Value: text}
}

// ParamSegment returns a named single-segment capture.
func ParamSegment(name string) Segment {
	return Segment{Kind: Param, Value: name}
}

// CatchAllSegment returns a named spread capture.
func CatchAllSegment(name string) Segment {
	return Segment{Kind: CatchAll, Value: name}
}

// Dynamic reports whether the segment is a capture.
func (s Segment) Dynamic() bool {
	return s.Kind != Literal
}

// Kind classifies a route.
type Kind int

const (
	// KindPage is a normal page or endpoint.
	KindPage Kind = iota
	// KindRedirect is a route that only exists to redirect elsewhere.
	KindRedirect
)

// String returns the kind name as used in manifests.
func (k Kind) String() string {
	if k == KindRedirect {
		return "redirect"
	}
	return "page"
}

// ParseKind parses a manifest kind name. The empty string is KindPage.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "", "page", "endpoint":
		return KindPage, true
	case "redirect":
		return KindRedirect, true
	}
	return KindPage, false
}

// Redirect is a redirect declaration. A zero Status means none was declared.
type Redirect struct {
	Destination string
	Status      int
}

// Target returns the destination and status, defaulting the status to 301.
func (r Redirect) Target() (string, int) {
	if r.Status == 0 {
		return r.Destination, DefaultRedirectStatus
	}
	return r.Destination, r.Status
}

// Route is a resolved route descriptor.
type Route struct {
	// StaticPath is the literal URL path; empty for dynamic routes.
	StaticPath string

	// Segments is the path split into literal and capture segments.
	Segments []Segment

	// Redirect is the declared redirect, if any.
	Redirect *Redirect

	// Prerendered is the absolute location of the file written at build time.
	Prerendered string

	// RedirectsTo is the index of the route this one aliases, in the same Table.
	RedirectsTo *int

	// Kind classifies the route.
	Kind Kind

	// NotFound marks the canonical not-found route.
	NotFound bool
}

// NewRoute parses pattern into a route. Patterns without captures produce a
// static route whose StaticPath is the normalized pattern.
func NewRoute(pattern string) (Route, error) {
	segs, err := ParsePattern(pattern)
	if err != nil {
		return Route{}, err
	}
	r := Route{Segments: segs}
	if !HasCaptures(segs) {
		r.StaticPath = JoinLiterals(segs)
		r.NotFound = r.StaticPath == NotFoundPath
	}
	return r, nil
}

// IsDynamic reports whether the route has no static path.
func (r *Route) IsDynamic() bool {
	return r.StaticPath == ""
}

// IsPrerendered reports whether the route's output was written to disk.
func (r *Route) IsPrerendered() bool {
	return r.Prerendered != ""
}

// Table is the ordered route table produced by a build.
type Table []Route

// Target returns the route that route i resolves to: the aliased route when
// RedirectsTo is set, otherwise route i itself.
func (t Table) Target(i int) (*Route, error) {
	if i < 0 || i >= len(t) {
		return nil, errors.New("E101").WithDetailf("route index %d out of range (%d routes)", i, len(t))
	}
	r := &t[i]
	if r.RedirectsTo == nil {
		return r, nil
	}
	j := *r.RedirectsTo
	if j < 0 || j >= len(t) {
		return nil, errors.New("E101").WithDetailf("route %d redirects to index %d, but the table has %d routes", i, j, len(t))
	}
	return &t[j], nil
}

// Index returns a pointer for use in Route.RedirectsTo.
func Index(i int) *int {
	return &i
}
