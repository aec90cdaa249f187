// Package preview serves a build output directory the way an edge host
// would, applying generated rules.
//
// Requests are resolved in this order:
//
//  1. An existing file under the output root is served as is (for "/x",
//     "/x.html" and "/x/index.html" are tried as well).
//  2. Otherwise the first matching rule, in weight order, is applied:
//     redirects answer with their status and Location, rewrites serve the
//     target file, and rules pointing at the fallback target are proxied to
//     the configured upstream server runtime.
//  3. Anything else is a plain 404.
//
// With live reload enabled, HTML responses get a small client script that
// reconnects to the preview server over WebSocket and reloads the page
// whenever the rules change.
package preview
