// Package errors provides structured, actionable error messages for edgerules.
//
// Every error carries a code (e.g. "E101") registered in this package. The
// code maps to a category, a short message, a detailed explanation and a
// documentation URL. Call sites add what they know about the failure:
//
//	err := errors.New("E101").
//	    WithLocation("routes.yaml", 0).
//	    WithDetail(`redirectsTo "/posts/[slug]" does not match any route`).
//	    WithSuggestion("Add the target route to the manifest or fix the pattern")
//
//	errors.PrintError(err)
//	// ERROR E101: Redirect alias does not resolve
//	//
//	//   routes.yaml
//	//
//	//   redirectsTo "/posts/[slug]" does not match any route
//	//
//	//   Hint: Add the target route to the manifest or fix the pattern
//	//
//	//   Learn more: https://vango.dev/docs/edgerules/errors/E101
//
// # Categories
//
//   - route: malformed route descriptors (caller contract violations)
//   - manifest: route manifest decoding
//   - config: edgerules.json problems
//   - build: writing generated output
//   - publish: uploading output
//   - preview: the local preview server
package errors
