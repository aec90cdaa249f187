package routes

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/edgerules/internal/errors"
)

// Format is a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the manifest format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errors.New("E104").
		WithLocation(path, 0).
		WithSuggestion("Rename the manifest to routes.json, routes.yaml or routes.toml")
}

// rawManifest is the on-disk shape shared by all three formats.
type rawManifest struct {
	Routes []rawRoute `json:"routes" yaml:"routes" toml:"routes"`
}

type rawRoute struct {
	Pattern     string `json:"pattern" yaml:"pattern" toml:"pattern"`
	Redirect    any    `json:"redirect,omitempty" yaml:"redirect,omitempty" toml:"redirect,omitempty"`
	RedirectsTo string `json:"redirectsTo,omitempty" yaml:"redirectsTo,omitempty" toml:"redirectsTo,omitempty"`
	Prerendered string `json:"prerendered,omitempty" yaml:"prerendered,omitempty" toml:"prerendered,omitempty"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	NotFound    *bool  `json:"notFound,omitempty" yaml:"notFound,omitempty" toml:"notFound,omitempty"`
}

// LoadManifest reads the route table at path. Relative prerendered
// locations are resolved against outDir.
func LoadManifest(path, outDir string) (Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E105").
			WithLocation(path, 0).
			WithDetail("The route manifest could not be read.").
			Wrap(err)
	}

	table, err := ParseManifest(data, format, outDir)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Location == nil {
			e.WithLocation(path, 0)
		}
		return nil, err
	}
	return table, nil
}

// ParseManifest decodes a manifest document into a route table.
func ParseManifest(data []byte, format Format, outDir string) (Table, error) {
	var raw rawManifest
	var err error

	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, errors.New("E104").WithDetailf("unknown manifest format %q", format)
	}
	if err != nil {
		return nil, errors.New("E105").WithDetail(err.Error()).Wrap(err)
	}

	return raw.resolve(outDir)
}

// resolve converts raw routes into a Table, resolving aliases by pattern.
func (m *rawManifest) resolve(outDir string) (Table, error) {
	table := make(Table, 0, len(m.Routes))

	for i, rr := range m.Routes {
		r, err := NewRoute(rr.Pattern)
		if err != nil {
			return nil, withRouteIndex(err, i)
		}

		if rr.Redirect != nil {
			redirect, err := decodeRedirect(rr.Redirect)
			if err != nil {
				return nil, withRouteIndex(err, i)
			}
			r.Redirect = redirect
			r.Kind = KindRedirect
		}

		if rr.Kind != "" {
			kind, ok := ParseKind(rr.Kind)
			if !ok {
				return nil, errors.New("E105").WithDetailf("routes[%d]: unknown kind %q", i, rr.Kind)
			}
			r.Kind = kind
		}

		if rr.NotFound != nil {
			r.NotFound = *rr.NotFound
		}

		if rr.Prerendered != "" {
			r.Prerendered = rr.Prerendered
			if !filepath.IsAbs(r.Prerendered) && outDir != "" {
				r.Prerendered = filepath.Join(outDir, r.Prerendered)
			}
		}

		table = append(table, r)
	}

	for i, rr := range m.Routes {
		if rr.RedirectsTo == "" {
			continue
		}
		segs, err := ParsePattern(rr.RedirectsTo)
		if err != nil {
			return nil, withRouteIndex(err, i)
		}
		j := slices.IndexFunc(table, func(r Route) bool {
			return slices.Equal(r.Segments, segs)
		})
		if j < 0 {
			return nil, errors.New("E101").
				WithDetailf("routes[%d]: redirectsTo %q does not match any route", i, rr.RedirectsTo).
				WithSuggestion("Add the target route to the manifest or fix the pattern")
		}
		table[i].RedirectsTo = Index(j)
	}

	return table, nil
}

// decodeRedirect accepts a bare destination string or a
// {destination, status} object as decoded by any of the three formats.
func decodeRedirect(v any) (*Redirect, error) {
	switch r := v.(type) {
	case string:
		if r == "" {
			return nil, errors.New("E106").WithDetail("empty redirect destination")
		}
		return &Redirect{Destination: r}, nil
	case map[string]any:
		dest, _ := r["destination"].(string)
		if dest == "" {
			return nil, errors.New("E106").WithDetail("redirect object has no destination")
		}
		status := 0
		if s, ok := r["status"]; ok {
			n, err := toStatus(s)
			if err != nil {
				return nil, err
			}
			status = n
		}
		return &Redirect{Destination: dest, Status: status}, nil
	}
	return nil, errors.New("E106").WithDetailf("unsupported redirect value of type %T", v)
}

// toStatus normalizes the integer types produced by encoding/json (float64),
// yaml.v3 (int) and go-toml (int64).
func toStatus(v any) (int, error) {
	var n int
	switch s := v.(type) {
	case int:
		n = s
	case int64:
		n = int(s)
	case uint64:
		n = int(s)
	case float64:
		if s != math.Trunc(s) {
			return 0, errors.New("E106").WithDetailf("status %v is not an integer", s)
		}
		n = int(s)
	default:
		return 0, errors.New("E106").WithDetailf("status has type %T, want a number", v)
	}
	if n < 100 || n > 599 {
		return 0, errors.New("E106").WithDetailf("status %d is not an HTTP status code", n)
	}
	return n, nil
}

func withRouteIndex(err error, i int) error {
	if e, ok := err.(*errors.Error); ok {
		e.Detail = fmt.Sprintf("routes[%d]: %s", i, e.Detail)
		return e
	}
	return fmt.Errorf("routes[%d]: %w", i, err)
}
