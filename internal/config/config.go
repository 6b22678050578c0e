package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Input parsing
	NullToken  string `mapstructure:"null_token" yaml:"null_token"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	OnError    string `mapstructure:"on_error" yaml:"on_error"`
	SchemaFile string `mapstructure:"schema_file" yaml:"schema_file,omitempty"`

	// Scoring
	Label       string   `mapstructure:"label" yaml:"label"`
	Features    []string `mapstructure:"features" yaml:"features,omitempty"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude"`
	Threshold   float64  `mapstructure:"threshold" yaml:"threshold"`
	PreviewRows int      `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format,omitempty"`

	// S3 sources; credentials come from the AWS default chain.
	S3Region    string `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint,omitempty"`
	S3PathStyle bool   `mapstructure:"s3_path_style" yaml:"s3_path_style,omitempty"`
}

// Keys lists the settable configuration keys in order.
func Keys() []string {
	keys := []string{
		"null_token", "delimiter", "on_error", "schema_file",
		"label", "features", "exclude", "threshold", "preview_rows",
		"log_level", "log_format",
		"s3_region", "s3_endpoint", "s3_path_style",
	}
	sort.Strings(keys)
	return keys
}

// DefaultPath returns ~/.linkstat/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".linkstat", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.linkstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Defaults returns the configuration used when no file or env overrides it.
func Defaults() *Global {
	return &Global{
		NullToken:   "?",
		Delimiter:   ",",
		OnError:     "fail",
		Label:       "is_match",
		Features:    []string{},
		Exclude:     []string{"id_1", "id_2"},
		Threshold:   4.0,
		PreviewRows: 10,
	}
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKSTAT")
	v.AutomaticEnv()

	// Defaults
	d := Defaults()
	v.SetDefault("null_token", d.NullToken)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("on_error", d.OnError)
	v.SetDefault("schema_file", d.SchemaFile)
	v.SetDefault("label", d.Label)
	v.SetDefault("features", d.Features)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("s3_region", d.S3Region)
	v.SetDefault("s3_endpoint", d.S3Endpoint)
	v.SetDefault("s3_path_style", d.S3PathStyle)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a file that exists but does not parse is an error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Features = splitList(c.Features)
	c.Exclude = splitList(c.Exclude)
	return &c, nil
}

// Set assigns key from its string form, as given on the command line.
func (c *Global) Set(key, value string) error {
	switch key {
	case "null_token":
		c.NullToken = value
	case "delimiter":
		if _, err := ParseDelimiter(value); err != nil {
			return err
		}
		c.Delimiter = value
	case "on_error":
		c.OnError = value
	case "schema_file":
		c.SchemaFile = value
	case "label":
		c.Label = value
	case "features":
		c.Features = splitList([]string{value})
	case "exclude":
		c.Exclude = splitList([]string{value})
	case "threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("threshold: %w", err)
		}
		c.Threshold = f
	case "preview_rows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("preview_rows: %w", err)
		}
		c.PreviewRows = n
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "s3_region":
		c.S3Region = value
	case "s3_endpoint":
		c.S3Endpoint = value
	case "s3_path_style":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("s3_path_style: %w", err)
		}
		c.S3PathStyle = b
	default:
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// ParseDelimiter accepts a single character or the names "tab",
// "comma", "semicolon" and "pipe". Empty means comma.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "comma":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// splitList flattens comma-separated entries, as env vars and flags supply
// lists as one string.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
