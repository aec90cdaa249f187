package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/edgerules/internal/config"
	"github.com/vango-dev/edgerules/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┬┐┌─┐┌─┐┬─┐┬ ┬┬  ┌─┐┌─┐
  ├┤  │││ ┬├┤ ├┬┘│ ││  ├┤ └─┐
  └─┘─┴┘└─┘└─┘┴└─└─┘┴─┘└─┘└─┘
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	noColor    bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "edgerules",
		Short: "Generate edge host rewrite and redirect rules",
		Long: `edgerules turns a static site's route table into a _redirects file.

Prerendered pages are served as files, server-rendered routes are
rewritten to a single server runtime, and redirects keep their
status codes. Rules are ordered so that exact paths win over
dynamic patterns and the not-found catch-all comes last.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				errors.DisableColors()
			}
			return opts.setupLogging(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to edgerules.json (default: search from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		initCmd(opts),
		buildCmd(opts),
		printCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

// setupLogging installs the slog handler selected by the flags.
func (o *globalOptions) setupLogging(w io.Writer) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch o.logFormat {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return errors.New("E170").
			WithDetailf("--log-format %q is not supported", o.logFormat).
			WithSuggestion("Use --log-format=text or --log-format=json")
	}

	o.logger = slog.New(handler)
	slog.SetDefault(o.logger)
	return nil
}

// loadConfig loads the config named by --config, or searches upward from
// the working directory.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.LoadFromWorkingDir()
}

// log returns the configured logger.
func (o *globalOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
