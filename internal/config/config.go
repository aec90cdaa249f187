package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/pkg/rules"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "edgerules.json"

	// DefaultManifest is the default route manifest path.
	DefaultManifest = "routes.json"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultRulesFile is the default name of the generated rules file.
	DefaultRulesFile = "_redirects"

	// DefaultPreviewHost is the default preview server host.
	DefaultPreviewHost = "localhost"

	// DefaultPreviewPort is the default preview server port.
	DefaultPreviewPort = 4321

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "edgerules"
)

// Config represents the complete edgerules.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Output is the deployment mode: static, server or hybrid.
	Output string `json:"output,omitempty"`

	// Manifest is the path to the route manifest.
	Manifest string `json:"manifest,omitempty"`

	// Fallback is the rewrite target for server-rendered routes.
	Fallback string `json:"fallback,omitempty"`

	// Build contains build output settings.
	Build BuildConfig `json:"build,omitempty"`

	// Preview contains preview server settings.
	Preview PreviewConfig `json:"preview,omitempty"`

	// Publish contains upload settings.
	Publish PublishConfig `json:"publish,omitempty"`

	// Metrics contains metrics output settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// BuildConfig contains build output settings.
type BuildConfig struct {
	// Output is the build output directory.
	Output string `json:"output,omitempty"`

	// Format is how prerendered pages are laid out: file or directory.
	Format string `json:"format,omitempty"`

	// File is the name of the generated rules file.
	File string `json:"file,omitempty"`

	// JSON also writes the rules as <file>.json.
	JSON bool `json:"json,omitempty"`
}

// PreviewConfig contains preview server settings.
type PreviewConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Upstream is the URL of the server runtime that fallback rules proxy to.
	Upstream string `json:"upstream,omitempty"`
}

// PublishConfig contains S3 upload settings.
type PublishConfig struct {
	// Bucket is the destination bucket. Publishing is disabled when empty.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to uploaded object keys.
	Prefix string `json:"prefix,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (for S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty"`
}

// MetricsConfig contains metrics output settings.
type MetricsConfig struct {
	// Textfile is where build metrics are written in Prometheus text format.
	Textfile string `json:"textfile,omitempty"`

	// Namespace is the metric name prefix.
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Output:   string(rules.ModeStatic),
		Manifest: DefaultManifest,
		Build: BuildConfig{
			Output: DefaultOutput,
			Format: string(rules.FormatDirectory),
			File:   DefaultRulesFile,
		},
		Preview: PreviewConfig{
			Host: DefaultPreviewHost,
			Port: DefaultPreviewPort,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for edgerules.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No edgerules.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'edgerules init' to create one")
		}
		return nil, errors.New("E120").WithLocation(path, 0).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithLocation(path, 0).
			WithDetail("Failed to parse edgerules.json: " + err.Error()).
			WithSuggestion("Check that edgerules.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").WithLocation(path, 0).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = string(rules.ModeStatic)
	}
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.Format == "" {
		c.Build.Format = string(rules.FormatDirectory)
	}
	if c.Build.File == "" {
		c.Build.File = DefaultRulesFile
	}
	if c.Preview.Host == "" {
		c.Preview.Host = DefaultPreviewHost
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPreviewPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := rules.ParseOutputMode(c.Output); err != nil {
		return err
	}
	if _, err := rules.ParseOutputFormat(c.Build.Format); err != nil {
		return err
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return errors.New("E122").
			WithDetail("preview.port must be between 0 and 65535")
	}
	if filepath.Base(c.Build.File) != c.Build.File {
		return errors.New("E122").
			WithDetailf("build.file %q must be a file name, not a path", c.Build.File)
	}
	return nil
}

// Options returns the generator options. Call Validate first.
func (c *Config) Options() rules.Options {
	mode, _ := rules.ParseOutputMode(c.Output)
	format, _ := rules.ParseOutputFormat(c.Build.Format)
	return rules.Options{Mode: mode, Format: format}
}

// ManifestPath returns the absolute path to the route manifest.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Manifest)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// RulesPath returns the absolute path of the generated rules file.
func (c *Config) RulesPath() string {
	return filepath.Join(c.OutputPath(), c.Build.File)
}

// RulesJSONPath returns the absolute path of the JSON rules file.
func (c *Config) RulesJSONPath() string {
	return c.RulesPath() + ".json"
}

// MetricsPath returns the absolute path of the metrics textfile, or "".
func (c *Config) MetricsPath() string {
	if c.Metrics.Textfile == "" {
		return ""
	}
	return c.resolve(c.Metrics.Textfile)
}

// PreviewAddress returns the address string for the preview server.
func (c *Config) PreviewAddress() string {
	return c.Preview.Host + ":" + strconv.Itoa(c.Preview.Port)
}

// PublishEnabled reports whether a publish bucket is configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != ""
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing edgerules.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No edgerules.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'edgerules init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
