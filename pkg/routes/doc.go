// Package routes describes the resolved route table of a site build.
//
// A route is either static (it has a literal StaticPath) or dynamic (its
// path contains captures). Both kinds carry their path as Segments:
//
//	/team/[id]        → Literal("team"), Param("id")
//	/docs/[...slug]   → Literal("docs"), CatchAll("slug")
//	/about            → Literal("about")   (StaticPath "/about")
//
// Routes may redirect to a destination, may alias another route in the same
// Table (RedirectsTo), and may have been prerendered to a file at build time.
//
// # Patterns
//
// ParsePattern accepts the same dynamic segment conventions as vango's file
// router:
//
//	[id]        → Param "id"
//	[id:int]    → Param "id" (the type annotation is ignored)
//	[...slug]   → CatchAll "slug"
//	_id_        → Param "id"
//	_slug___    → CatchAll "slug"
//
// # Manifests
//
// LoadManifest reads a route table from a JSON, YAML or TOML file:
//
//	routes:
//	  - pattern: /team/[id]
//	  - pattern: /old
//	    redirect: /new
//	  - pattern: /moved
//	    redirect: {destination: /x, status: 308}
//	  - pattern: /blog/[...slug]
//	    kind: redirect
//	    redirectsTo: /posts/[...slug]
//	    prerendered: blog/index.html
//	  - pattern: /404
package routes
