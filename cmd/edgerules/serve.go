package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/edgerules/internal/build"
	"github.com/vango-dev/edgerules/internal/config"
	"github.com/vango-dev/edgerules/internal/preview"
	"github.com/vango-dev/edgerules/pkg/rules"
)

type serveFlags struct {
	overrides
	port     int
	host     string
	upstream string
	watch    bool
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Preview the build output with the generated rules",
		Long: `Serve the build output directory and apply the generated rules
the way an edge host would.

Existing files are served first. Redirect rules answer with their
status, rewrites serve the target file, and rules that point at the
fallback are proxied to --upstream.

With --watch, the manifest and edgerules.json are polled and the
rules are regenerated on change. Open pages reload automatically.

Examples:
  edgerules serve
  edgerules serve --port=8080 --upstream=http://localhost:3000
  edgerules serve --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runServe(ctx, opts, f)
		},
	}

	f.overrides.register(cmd)
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to run on (default from edgerules.json)")
	cmd.Flags().StringVarP(&f.host, "host", "H", "", "Host to bind to (default from edgerules.json)")
	cmd.Flags().StringVarP(&f.upstream, "upstream", "u", "", "Server runtime URL for fallback rules")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Regenerate rules and reload pages on change")

	return cmd
}

// load reads the config and applies the serve flags.
func (f *serveFlags) load(opts *globalOptions) (*config.Config, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if f.port > 0 {
		cfg.Preview.Port = f.port
	}
	if f.host != "" {
		cfg.Preview.Host = f.host
	}
	if f.upstream != "" {
		cfg.Preview.Upstream = f.upstream
	}
	if err := f.overrides.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts *globalOptions, f serveFlags) error {
	cfg, err := f.load(opts)
	if err != nil {
		return err
	}
	logger := opts.log()

	rs, err := build.New(cfg, build.Options{Logger: logger}).Generate(ctx)
	if err != nil {
		return err
	}

	srv, err := preview.New(preview.Config{
		Root:       cfg.OutputPath(),
		Addr:       cfg.PreviewAddress(),
		Fallback:   cfg.Fallback,
		Upstream:   cfg.Preview.Upstream,
		Hidden:     []string{cfg.Build.File, filepath.Base(cfg.RulesJSONPath())},
		LiveReload: f.watch,
		Logger:     logger,
	}, rs)
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Preview server running at http://%s", cfg.PreviewAddress())
	info("Serving %s with %d rules", cfg.OutputPath(), rs.Len())
	if cfg.Preview.Upstream != "" {
		info("Proxying %s to %s", fallbackLabel(cfg.Fallback), cfg.Preview.Upstream)
	}

	if f.watch {
		files := []string{cfg.ManifestPath()}
		if cfg.Path() != "" {
			files = append(files, cfg.Path())
		}
		watcher := preview.NewWatcher(preview.WatcherConfig{Files: files})
		watcher.OnChange(func(changes []preview.Change) {
			for _, c := range changes {
				logger.Debug("file changed", "path", c.Path, "change", c.Type)
			}
			reloadRules(ctx, srv, func() (*rules.Rules, string, error) {
				cfg, err := f.load(opts)
				if err != nil {
					return nil, "", err
				}
				rs, err := build.New(cfg, build.Options{Logger: logger}).Generate(ctx)
				return rs, cfg.Fallback, err
			})
		})
		go watcher.Start(ctx)
		info("Watching %d files for changes", len(files))
	}

	fmt.Println()
	info("Press Ctrl+C to stop")
	fmt.Println()

	return srv.ListenAndServe(ctx)
}

// reloadRules regenerates the rules and swaps them, with the fallback they
// were generated for, into srv. On failure the previous rules stay active
// and connected browsers are told why.
func reloadRules(ctx context.Context, srv *preview.Server, generate func() (*rules.Rules, string, error)) {
	if ctx.Err() != nil {
		return
	}
	hub := srv.Reload()

	rs, fallback, err := generate()
	if err != nil {
		errorMsg("Rules not reloaded: %s", err)
		if hub != nil {
			hub.NotifyError(err.Error())
		}
		return
	}

	srv.SetRules(rs, fallback)
	success("Rules reloaded (%d rules)", rs.Len())
	if hub != nil {
		hub.ClearError()
		hub.NotifyReload()
	}
}

func fallbackLabel(fallback string) string {
	if fallback == "" {
		return "server-rendered routes"
	}
	return fallback
}
