package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("E101")

	if err.Code != "E101" {
		t.Errorf("Code = %q, want %q", err.Code, "E101")
	}
	if err.Category != CategoryRoute {
		t.Errorf("Category = %q, want %q", err.Category, CategoryRoute)
	}
	if err.Message != "Redirect alias does not resolve" {
		t.Errorf("Message = %q", err.Message)
	}
	if !strings.HasSuffix(err.DocURL, "/E101") {
		t.Errorf("DocURL = %q, want suffix /E101", err.DocURL)
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("E999")
	if err.Message != "Unknown error" {
		t.Errorf("Message = %q, want %q", err.Message, "Unknown error")
	}
	if err.Category != "" {
		t.Errorf("Category = %q, want empty", err.Category)
	}
}

func TestRegistry_Complete(t *testing.T) {
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok {
			t.Fatalf("Lookup(%q) failed", code)
		}
		if tmpl.Category == "" || tmpl.Message == "" || tmpl.DocURL == "" {
			t.Errorf("%s: incomplete template %+v", code, tmpl)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s: DocURL %q does not end with the code", code, tmpl.DocURL)
		}
	}
}

func TestError_Error(t *testing.T) {
	err := New("E100")
	if err.Error() != "E100: Dynamic route has no segments" {
		t.Errorf("Error() = %q", err.Error())
	}

	err2 := Newf(CategoryCLI, "bad flag %s", "--mode")
	if err2.Error() != "bad flag --mode" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "bad flag --mode")
	}
}

func TestError_Builders(t *testing.T) {
	err := New("E105").
		WithLocation("routes.yaml", 12).
		WithDetailf("line %d", 12).
		WithSuggestion("Fix the YAML")

	if err.Location == nil || err.Location.File != "routes.yaml" || err.Location.Line != 12 {
		t.Errorf("Location = %+v", err.Location)
	}
	if err.Detail != "line 12" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Suggestion != "Fix the YAML" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	outer := New("E142").Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E142") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	e := New("E101")
	if FromError(e, "E142") != e {
		t.Error("FromError should return *Error as-is")
	}

	std := fmt.Errorf("boom")
	result := FromError(std, "E142")
	if result.Wrapped != std || result.Code != "E142" {
		t.Errorf("FromError = %+v", result)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("loading: %w", New("E104"))

	if !HasCode(err, "E104") {
		t.Error("HasCode should find a wrapped code")
	}
	if HasCode(err, "E105") {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(nil, "E104") {
		t.Error("HasCode(nil) should be false")
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"file only", &Location{File: "routes.json"}, "routes.json"},
		{"with line", &Location{File: "routes.yaml", Line: 3}, "routes.yaml:3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E101").
		WithLocation("routes.json", 0).
		WithDetail(`redirectsTo "/posts/[slug]" does not match any route`).
		WithSuggestion("Add the target route").
		Wrap(fmt.Errorf("lookup failed"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E101: Redirect alias does not resolve",
		"routes.json",
		`redirectsTo "/posts/[slug]"`,
		"Cause: lookup failed",
		"Hint: Add the target route",
		"Learn more: https://vango.dev/docs/edgerules/errors/E101",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E103").WithLocation("routes.yaml", 4).WithDetail("unclosed bracket")
	want := "routes.yaml:4: E103: Invalid route pattern: unclosed bracket"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E150").WithLocation("dist/_redirects", 0).Wrap(fmt.Errorf("access denied"))

	var got map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON is not valid JSON: %v", jerr)
	}
	if got["code"] != "E150" {
		t.Errorf("code = %v", got["code"])
	}
	if got["category"] != string(CategoryPublish) {
		t.Errorf("category = %v", got["category"])
	}
	if got["cause"] != "access denied" {
		t.Errorf("cause = %v", got["cause"])
	}
	loc, ok := got["location"].(map[string]any)
	if !ok || loc["file"] != "dist/_redirects" {
		t.Errorf("location = %v", got["location"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestFprintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	FprintError(&buf, fmt.Errorf("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	FprintError(&buf, New("E141"))
	if !strings.Contains(buf.String(), "ERROR E141") {
		t.Errorf("got %q", buf.String())
	}
}
