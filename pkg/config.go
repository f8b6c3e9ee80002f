package dirhash

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dirhash configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// DigestConfig represents hash algorithm and chunking configuration
type DigestConfig struct {
	Algorithm string // Hash algorithm name
	ChunkSize string // Human readable chunk size, e.g. "1M"
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // Output format: human, json
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Debug flags (comma-separated)
}

// SymlinkConfig represents symlink handling configuration
type SymlinkConfig struct {
	Mode string // Symlink mode: hash, ignore
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int // Number of concurrent hash workers (default: 4)
}

// ExcludeConfig represents exclusion patterns
type ExcludeConfig struct {
	Patterns []string // Regular expressions matched against relative paths
}

// AllConfig represents all configuration options
type AllConfig struct {
	Digest      *DigestConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Symlink     *SymlinkConfig
	Performance *PerformanceConfig
	Exclude     *ExcludeConfig
}

// DefaultConfig returns an in-memory configuration holding the defaults
func DefaultConfig() *Config {
	cfg := &Config{ini: ini.Empty()}
	// setDefaults only fails on invalid section names, which are constants here
	_ = cfg.setDefaults()
	return cfg
}

// LoadConfig loads configuration from an INI file. An empty path yields the
// defaults without touching the filesystem; nothing is ever written into the
// tree being hashed.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := &Config{
		configPath: configPath,
		ini:        iniFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section string
		key     string
		value   string
	}{
		{"digest", "algorithm", DefaultAlgorithm},
		{"digest", "chunk_size", strconv.Itoa(DefaultChunkSize)},
		{"output", "format", OutputFormatHuman},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
		{"symlink", "mode", SymlinkModeHash},
		{"performance", "hash_workers", strconv.Itoa(DefaultHashWorkers)},
		{"exclude", "patterns", ""},
	}

	for _, d := range defaults {
		section, err := c.ini.NewSection(d.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", d.section, err)
		}
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}

	return nil
}

// GetDigestConfig returns the digest configuration
func (c *Config) GetDigestConfig() *DigestConfig {
	digestConfig := &DigestConfig{
		Algorithm: DefaultAlgorithm,
		ChunkSize: strconv.Itoa(DefaultChunkSize),
	}

	if c.ini.HasSection("digest") {
		section := c.ini.Section("digest")
		if section.HasKey("algorithm") {
			if v := section.Key("algorithm").String(); v != "" {
				digestConfig.Algorithm = v
			}
		}
		if section.HasKey("chunk_size") {
			if v := section.Key("chunk_size").String(); v != "" {
				digestConfig.ChunkSize = v
			}
		}
	}

	return digestConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: OutputFormatHuman,
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetSymlinkConfig returns the symlink configuration
func (c *Config) GetSymlinkConfig() *SymlinkConfig {
	symlinkConfig := &SymlinkConfig{
		Mode: SymlinkModeHash,
	}

	if c.ini.HasSection("symlink") {
		section := c.ini.Section("symlink")
		if section.HasKey("mode") {
			symlinkConfig.Mode = section.Key("mode").String()
		}
	}

	return symlinkConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers,
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
	}

	return performanceConfig
}

// GetExcludeConfig returns the exclusion patterns
func (c *Config) GetExcludeConfig() *ExcludeConfig {
	excludeConfig := &ExcludeConfig{}

	if c.ini.HasSection("exclude") {
		section := c.ini.Section("exclude")
		if section.HasKey("patterns") {
			for _, p := range section.Key("patterns").Strings(",") {
				if p != "" {
					excludeConfig.Patterns = append(excludeConfig.Patterns, p)
				}
			}
		}
	}

	return excludeConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Digest:      c.GetDigestConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Symlink:     c.GetSymlinkConfig(),
		Performance: c.GetPerformanceConfig(),
		Exclude:     c.GetExcludeConfig(),
	}
}

// Options converts the configuration into digest options
func (c *Config) Options() (Options, error) {
	all := c.GetAllConfig()

	chunkSize, err := ParseHumanSize(all.Digest.ChunkSize)
	if err != nil {
		return Options{}, fmt.Errorf("invalid chunk_size: %w", err)
	}

	policy, err := ParseSymlinkPolicy(strings.ToLower(all.Symlink.Mode))
	if err != nil {
		return Options{}, err
	}

	return Options{
		Algorithm:     all.Digest.Algorithm,
		ChunkSize:     chunkSize,
		SymlinkPolicy: policy,
		Workers:       all.Performance.HashWorkers,
		Exclude:       all.Exclude.Patterns,
	}, nil
}

// Path returns the file the configuration was loaded from, "" for defaults
func (c *Config) Path() string {
	return c.configPath
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "algorithm:sha256", "chunk_size:64K", "mode:ignore", "level:2"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "algorithm":
			c.ini.Section("digest").Key("algorithm").SetValue(value)
		case "chunk_size":
			c.ini.Section("digest").Key("chunk_size").SetValue(value)
		case "format":
			c.ini.Section("output").Key("format").SetValue(value)
		case "level":
			c.ini.Section("verbose").Key("level").SetValue(value)
		case "debug":
			c.ini.Section("verbose").Key("debug").SetValue(value)
		case "mode":
			c.ini.Section("symlink").Key("mode").SetValue(value)
		case "hash_workers":
			c.ini.Section("performance").Key("hash_workers").SetValue(value)
		case "exclude":
			existing := append(c.GetExcludeConfig().Patterns, value)
			escaped := make([]string, len(existing))
			for i, p := range existing {
				escaped[i] = escapeListValue(p)
			}
			c.ini.Section("exclude").Key("patterns").SetValue(strings.Join(escaped, ","))
		default:
			return fmt.Errorf("unsupported override key '%s' (supported: algorithm, chunk_size, format, level, debug, mode, hash_workers, exclude)", key)
		}
	}

	return c.Validate()
}

// escapeListValue protects backslashes and commas in one element of a comma
// separated list, as read back by ini.Key.Strings
func escapeListValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, ",", `\,`)
}

// Validate checks every configuration option
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	if err := ValidateHashAlgorithm(all.Digest.Algorithm); err != nil {
		return err
	}
	if err := ValidateChunkSize(all.Digest.ChunkSize); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	if err := ValidateSymlinkMode(all.Symlink.Mode); err != nil {
		return err
	}
	if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
		return err
	}
	if _, err := NewIgnoreManager(all.Exclude.Patterns); err != nil {
		return err
	}
	return nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedAlgorithm, algorithm,
			strings.Join(SupportedHashAlgorithms(), ", "))
	}
	return nil
}

// ValidateChunkSize validates a human readable chunk size
func ValidateChunkSize(size string) error {
	if _, err := ParseHumanSize(size); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChunkSize, err)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case OutputFormatHuman, OutputFormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateSymlinkMode validates that a symlink mode is supported
func ValidateSymlinkMode(mode string) error {
	_, err := ParseSymlinkPolicy(strings.ToLower(mode))
	return err
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > MaxHashWorkers {
		return fmt.Errorf("hash workers should not exceed %d, got: %d", MaxHashWorkers, workers)
	}
	return nil
}
