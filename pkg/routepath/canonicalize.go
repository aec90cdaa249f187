// Package routepath canonicalizes request paths before they are matched
// against rules or mapped onto files.
package routepath

import (
	"errors"
	"strings"
)

// Result is a canonicalized request path.
type Result struct {
	// Path is the canonical path. It starts with "/" and has no trailing
	// slash unless it is the root.
	Path string

	// Query is the query string without the leading "?".
	Query string

	// TrailingSlash reports whether the input path ended in "/".
	TrailingSlash bool
}

// Canonicalization errors.
var (
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// Canonicalize collapses repeated slashes and resolves "." and ".."
// segments. Inputs with a backslash, a NUL byte, a malformed percent escape
// or a ".." above the root are rejected. A query string is split off and
// left untouched.
func Canonicalize(input string) (Result, error) {
	p, query, _ := strings.Cut(input, "?")
	if p == "" {
		return Result{Path: "/", Query: query}, nil
	}

	if strings.Contains(p, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(p, "\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(p, "%") {
		if err := validatePercentEscapes(p); err != nil {
			return Result{}, err
		}
	}

	trailing := len(p) > 1 && strings.HasSuffix(p, "/")

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	return Result{
		Path:          "/" + strings.Join(out, "/"),
		Query:         query,
		TrailingSlash: trailing,
	}, nil
}

// validatePercentEscapes checks that every '%' starts a %XX escape.
func validatePercentEscapes(p string) error {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHexDigit(p[i+1]) || !isHexDigit(p[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
