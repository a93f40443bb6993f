package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vango-dev/islands/internal/errors"
	"github.com/vango-dev/islands/pkg/renderer"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "islands.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultHMRPort is the port the dev server pushes live updates on.
	DefaultHMRPort = 12321

	// DefaultSrc is the default component source directory.
	DefaultSrc = "src"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultRuntime is the directory holding the generated runtime modules.
	DefaultRuntime = "node_modules/islands/runtime"

	// DefaultPackagePrefix is the URL prefix bare module references resolve under.
	DefaultPackagePrefix = "/_islands/pkg"

	// DefaultCompilerCommand is the executable that runs the component compiler.
	DefaultCompilerCommand = "node"
)

// DefaultCompilerArgs are the arguments passed to DefaultCompilerCommand.
var DefaultCompilerArgs = []string{"node_modules/islands/compiler.mjs"}

// Config represents the complete islands.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Src is the directory holding component sources.
	Src string `json:"src,omitempty"`

	// Runtime is the directory holding the generated runtime modules.
	Runtime string `json:"runtime,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Renderers is the ordered renderer registry.
	Renderers []renderer.Descriptor `json:"renderers,omitempty"`

	// Packages controls how module references become public URLs.
	Packages PackagesConfig `json:"packages,omitempty"`

	// Compiler configures the external component compiler.
	Compiler CompilerConfig `json:"compiler,omitempty"`

	// Site is passed through to the compiler untouched.
	Site json.RawMessage `json:"site,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port the dev server serves metrics and health on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// HMRPort is the port browsers connect to for live updates.
	HMRPort int `json:"hmrPort,omitempty"`

	// Watch contains extra paths to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty"`
}

// PackagesConfig contains module URL settings.
type PackagesConfig struct {
	// Prefix is prepended to bare module references.
	Prefix string `json:"prefix,omitempty"`
}

// CompilerConfig configures the external compiler process.
type CompilerConfig struct {
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty"`

	// Concurrency caps parallel compiles (0 = number of CPUs).
	Concurrency int `json:"concurrency,omitempty"`

	// Publish uploads build output to S3 when Bucket is set.
	Publish PublishConfig `json:"publish,omitempty"`
}

// PublishConfig configures the S3 output sink.
type PublishConfig struct {
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Src:     DefaultSrc,
		Runtime: DefaultRuntime,
		Dev: DevConfig{
			Port:    DefaultPort,
			Host:    DefaultHost,
			HMRPort: DefaultHMRPort,
		},
		Packages: PackagesConfig{
			Prefix: DefaultPackagePrefix,
		},
		Compiler: CompilerConfig{
			Command: DefaultCompilerCommand,
			Args:    append([]string(nil), DefaultCompilerArgs...),
		},
		Build: BuildConfig{
			Output: DefaultOutput,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for islands.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No islands.json found in " + filepath.Dir(path)).
				WithSuggestion("Create islands.json at the project root")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse islands.json: " + err.Error()).
			WithSuggestion("Check that islands.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

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
		return errors.New("E120").Wrap(err)
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
	if c.Src == "" {
		c.Src = DefaultSrc
	}
	if c.Runtime == "" {
		c.Runtime = DefaultRuntime
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.HMRPort == 0 {
		c.Dev.HMRPort = DefaultHMRPort
	}
	if c.Packages.Prefix == "" {
		c.Packages.Prefix = DefaultPackagePrefix
	}
	if c.Compiler.Command == "" {
		c.Compiler.Command = DefaultCompilerCommand
		if c.Compiler.Args == nil {
			c.Compiler.Args = append([]string(nil), DefaultCompilerArgs...)
		}
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E122").
			WithDetail("dev.port must be between 0 and 65535")
	}
	if c.Dev.HMRPort < 0 || c.Dev.HMRPort > 65535 {
		return errors.New("E122").
			WithDetail("dev.hmrPort must be between 0 and 65535")
	}
	if err := renderer.Validate(c.Renderers); err != nil {
		return err
	}
	if len(c.Site) > 0 && !json.Valid(c.Site) {
		return errors.New("E120").WithDetail("site must be valid JSON")
	}
	return nil
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// HMRAddress returns the address the HMR websocket listens on.
func (c *Config) HMRAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.HMRPort)
}

// SrcPath returns the absolute path to the component source directory.
func (c *Config) SrcPath() string {
	return c.resolve(c.Src)
}

// RuntimePath returns the absolute path to the runtime module directory.
func (c *Config) RuntimePath() string {
	return c.resolve(c.Runtime)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// WatchPaths returns the source directory plus any extra dev.watch entries.
func (c *Config) WatchPaths() []string {
	paths := []string{c.SrcPath()}
	for _, p := range c.Dev.Watch {
		paths = append(paths, c.resolve(p))
	}
	return paths
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
// Returns the directory containing islands.json, or an error if not found.
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
				WithDetail("No islands.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create islands.json at the project root")
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
