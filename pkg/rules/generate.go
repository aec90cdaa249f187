package rules

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/pkg/routes"
)

// OutputMode is how the site is deployed.
type OutputMode string

const (
	// ModeStatic deploys only files; the host serves them directly.
	ModeStatic OutputMode = "static"
	// ModeServer renders every non-prerendered route in a server runtime.
	ModeServer OutputMode = "server"
	// ModeHybrid mixes prerendered pages with a server runtime.
	ModeHybrid OutputMode = "hybrid"
)

// ParseOutputMode validates a mode name.
func ParseOutputMode(s string) (OutputMode, error) {
	switch m := OutputMode(strings.ToLower(s)); m {
	case ModeStatic, ModeServer, ModeHybrid:
		return m, nil
	}
	return "", errors.New("E121").WithDetailf("unknown output mode %q (want static, server or hybrid)", s)
}

// OutputFormat is how prerendered pages are laid out on disk.
type OutputFormat string

const (
	// FormatFile writes name.html.
	FormatFile OutputFormat = "file"
	// FormatDirectory writes name/index.html.
	FormatDirectory OutputFormat = "directory"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatFile, FormatDirectory:
		return f, nil
	}
	return "", errors.New("E121").WithDetailf("unknown output format %q (want file or directory)", s)
}

// Options is the part of the build configuration the generator reads.
type Options struct {
	Mode   OutputMode
	Format OutputFormat
}

// Generate builds the rule collection for a route table.
//
// outDir is the build output root that prerendered locations are made
// relative to. fallback is the rewrite target for routes handled by a server
// runtime; it may be empty.
//
// Generate does not modify table. It fails only on malformed routes: a
// dynamic route without segments (E100), an alias that does not resolve
// (E101) or a prerendered file outside outDir (E102).
func Generate(table routes.Table, opts Options, outDir, fallback string) (*Rules, error) {
	rs := New()

	for i := range table {
		route := &table[i]

		if !route.IsDynamic() {
			if err := addStatic(rs, route, opts, outDir, fallback); err != nil {
				return nil, err
			}
			continue
		}

		if len(route.Segments) == 0 {
			return nil, errors.New("E100").WithDetailf("route %d has neither a static path nor segments", i)
		}
		pattern := Pattern(route.Segments)

		if !route.IsPrerendered() {
			rs.Add(Rule{
				Dynamic: true,
				Input:   pattern,
				Target:  fallback,
				Status:  http.StatusOK,
				Weight:  WeightDynamic,
			})
			continue
		}

		target, err := table.Target(i)
		if err != nil {
			return nil, err
		}
		targetPattern := target.StaticPath
		if target.IsDynamic() {
			if len(target.Segments) == 0 {
				return nil, errors.New("E100").WithDetailf("route %d aliases a route without segments", i)
			}
			targetPattern = Pattern(target.Segments)
		}

		status := http.StatusOK
		if route.Kind == routes.KindRedirect {
			status = http.StatusMovedPermanently
		}
		rs.Add(Rule{
			Dynamic: true,
			Input:   pattern,
			Target:  htmlTarget(targetPattern, opts.Format),
			Status:  status,
			Weight:  WeightDynamic,
		})
	}

	return rs, nil
}

func addStatic(rs *Rules, route *routes.Route, opts Options, outDir, fallback string) error {
	if route.Redirect != nil {
		dest, status := route.Redirect.Target()
		rs.Add(Rule{
			Input:  route.StaticPath,
			Target: dest,
			Status: status,
			Weight: WeightStatic,
		})
		return nil
	}

	if opts.Mode == ModeStatic {
		return nil
	}

	if route.IsPrerendered() {
		rel, err := relativeTo(outDir, route.Prerendered)
		if err != nil {
			return err
		}
		rs.Add(Rule{
			Input:  route.StaticPath,
			Target: normalizePath(rel),
			Status: http.StatusOK,
			Weight: WeightStatic,
		})
		return nil
	}

	rs.Add(Rule{
		Input:  route.StaticPath,
		Target: fallback,
		Status: http.StatusOK,
		Weight: WeightStatic,
	})
	if route.NotFound {
		rs.Add(Rule{
			Input:  "/*",
			Target: fallback,
			Status: http.StatusNotFound,
			Weight: WeightFallback,
		})
	}
	return nil
}

// Pattern renders segments in edge-router syntax: "/" followed by the
// segments joined with "/", where a param is ":name" and a catch-all is "*".
func Pattern(segs []routes.Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		switch s.Kind {
		case routes.CatchAll:
			parts[i] = "*"
		case routes.Param:
			parts[i] = ":" + s.Value
		default:
			parts[i] = s.Value
		}
	}
	return "/" + strings.Join(parts, "/")
}

// htmlTarget points a pattern at its prerendered HTML file.
func htmlTarget(pattern string, format OutputFormat) string {
	if format == FormatDirectory {
		if !strings.HasSuffix(pattern, "/") {
			pattern += "/"
		}
		return pattern + "index.html"
	}
	return pattern + ".html"
}

// relativeTo returns file's path below root using forward slashes.
func relativeTo(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", errors.New("E102").WithDetailf("%s is not below %s", file, root).Wrap(err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.New("E102").WithDetailf("%s is not below %s", file, root)
	}
	return rel, nil
}

// normalizePath prepends a slash when p lacks one.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
