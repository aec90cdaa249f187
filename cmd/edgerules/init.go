package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/edgerules/internal/config"
	"github.com/vango-dev/edgerules/internal/errors"
)

type initFlags struct {
	name     string
	mode     string
	manifest string
	output   string
	fallback string
	force    bool
}

func initCmd(opts *globalOptions) *cobra.Command {
	var f initFlags

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create edgerules.json",
		Long: `Create an edgerules.json with default settings.

Examples:
  edgerules init
  edgerules init site --mode=hybrid --fallback=/_render
  edgerules init --manifest=routes.yaml --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := runInit(dir, f)
			if err != nil {
				return err
			}
			success("Created %s", path)
			fmt.Println()
			info("Next steps:")
			info("  1. Point \"manifest\" at your route table")
			info("  2. Run 'edgerules build'")
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Project name (default: directory name)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Output mode (static, server, hybrid)")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "Route manifest path")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Build output directory")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "Rewrite target for server-rendered routes")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Overwrite an existing edgerules.json")

	return cmd
}

// runInit writes a default config into dir and returns its path.
func runInit(dir string, f initFlags) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if config.Exists(abs) && !f.force {
		return "", errors.New("E143").
			WithLocation(filepath.Join(abs, config.ConfigFileName), 0).
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", errors.New("E120").WithLocation(abs, 0).Wrap(err)
	}

	cfg := config.New()
	cfg.Name = f.name
	if cfg.Name == "" {
		cfg.Name = filepath.Base(abs)
	}
	if f.mode != "" {
		cfg.Output = f.mode
	}
	if f.manifest != "" {
		cfg.Manifest = f.manifest
	}
	if f.output != "" {
		cfg.Build.Output = f.output
	}
	cfg.Fallback = f.fallback

	if err := cfg.Validate(); err != nil {
		return "", err
	}

	path := filepath.Join(abs, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}
