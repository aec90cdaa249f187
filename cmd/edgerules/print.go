package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/edgerules/internal/build"
)

func printCmd(opts *globalOptions) *cobra.Command {
	var (
		o      overrides
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the generated rules",
		Long: `Generate rules from the route manifest and print them to stdout
without writing any files.

Examples:
  edgerules print
  edgerules print --mode=server --fallback=/_render
  edgerules print --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := o.apply(cfg); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rs, err := build.New(cfg, build.Options{Logger: opts.log()}).Generate(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rs)
			}
			if text := rs.Print(); text != "" {
				_, err = fmt.Fprintln(out, text)
			}
			return err
		},
	}

	o.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rules as JSON")

	return cmd
}
