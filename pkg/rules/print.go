package rules

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

const (
	// columnGap is the minimum number of spaces between columns.
	columnGap = 4

	// minColumnWidth is the narrowest input or target column.
	minColumnWidth = 4
)

// Print renders the rules in the _redirects format understood by Netlify
// and Cloudflare Pages:
//
//	/old         /new                         301
//	/team/:id    /.netlify/functions/entry    200
//
// Rules without an input or target are skipped. With no fallback target
// configured this drops every server-rendered route, including the
// "/* 404" not-found catch-all. Columns are aligned on the longest input
// and target among the printed rules. The last line has no trailing
// newline.
func (rs *Rules) Print() string {
	printed := make([]Rule, 0, len(rs.entries))
	inputWidth, targetWidth := minColumnWidth, minColumnWidth
	for _, r := range rs.entries {
		if r.Input == "" || r.Target == "" {
			continue
		}
		printed = append(printed, r)
		inputWidth = max(inputWidth, len(r.Input))
		targetWidth = max(targetWidth, len(r.Target))
	}

	var b strings.Builder
	for i, r := range printed {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Input)
		b.WriteString(strings.Repeat(" ", inputWidth-len(r.Input)+columnGap))
		b.WriteString(r.Target)
		b.WriteString(strings.Repeat(" ", targetWidth-len(r.Target)+columnGap))
		b.WriteString(strconv.Itoa(r.Status))
	}
	return b.String()
}

// WriteTo writes Print's output to w.
func (rs *Rules) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, rs.Print())
	return int64(n), err
}

// MarshalJSON encodes the rules as an array in application order.
func (rs *Rules) MarshalJSON() ([]byte, error) {
	if rs.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rs.entries)
}
