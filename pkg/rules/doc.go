// Package rules turns a resolved route table into edge rewrite and redirect
// rules.
//
// Generate walks the route table once, in order, and emits Rule entries into
// a Rules collection. Each rule has a weight: literal paths (2) apply before
// patterns (1), which apply before the catch-all not-found fallback (0).
// Rules of equal weight keep the order of the route table.
//
// # Usage
//
//	table, err := routes.LoadManifest("routes.json", "dist")
//	if err != nil {
//	    return err
//	}
//
//	rs, err := rules.Generate(table, rules.Options{
//	    Mode:   rules.ModeServer,
//	    Format: rules.FormatDirectory,
//	}, "dist", "/.netlify/functions/entry")
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println(rs.Print())
//	// /about       /.netlify/functions/entry    200
//	// /team/:id    /.netlify/functions/entry    200
//	// /*           /.netlify/functions/entry    404
//
// # Patterns
//
// Captures are written in edge-router syntax: a named capture becomes
// ":name" and a catch-all becomes "*".
package rules
