// Package build runs the rule generation pipeline for a project.
//
// The pipeline:
//   - Loads the route manifest
//   - Generates rewrite and redirect rules
//   - Writes the _redirects file (and optionally _redirects.json)
//   - Records build metrics to a Prometheus textfile
//   - Publishes the written files to S3
//
// # Usage
//
//	builder := build.New(cfg, build.Options{Logger: logger})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Printf("Wrote %d rules in %s\n", result.Rules.Len(), result.Duration)
//
// Each step runs in an OpenTelemetry span. Without a configured tracer
// provider the spans are no-ops.
package build
