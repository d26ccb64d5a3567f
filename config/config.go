// Package config loads rsdoc options from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileNames are the config files Find looks for, in order.
var FileNames = []string{"rsdoc.toml", ".rsdoc.toml", "rsdoc.yaml", "rsdoc.yml"}

// Config holds every recognized option.
type Config struct {
	DocumentPrivate      bool `toml:"document_private" yaml:"document_private"`
	MinExistingDocLen    uint `toml:"min_existing_doc_len" yaml:"min_existing_doc_len"`
	InferenceTimeoutMS   uint `toml:"inference_timeout_ms" yaml:"inference_timeout_ms" validate:"min=1"`
	InferenceConcurrency uint `toml:"inference_concurrency" yaml:"inference_concurrency" validate:"min=1,max=1024"`

	// Placeholders are extra words marking an existing doc as a stub.
	Placeholders []string `toml:"placeholders" yaml:"placeholders" validate:"dive,required"`

	Inference Inference `toml:"inference" yaml:"inference"`
	Log       Log       `toml:"log" yaml:"log"`
}

// Inference selects the doc inference adapter.
type Inference struct {
	// Endpoint is the URL of an HTTP inference service. Empty selects the
	// built-in heuristic adapter.
	Endpoint string `toml:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	// CacheDir enables the on-disk inference cache.
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
}

// Log configures the logger.
type Log struct {
	Level  string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DocumentPrivate:      false,
		MinExistingDocLen:    20,
		InferenceTimeoutMS:   5000,
		InferenceConcurrency: 8,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// WithDefaults fills unset limits with their defaults. The zero Config
// becomes Default(); otherwise zero timeout and concurrency are replaced and
// every other field is kept, since zero is a valid minimum doc length.
func (c Config) WithDefaults() Config {
	if c.zero() {
		return Default()
	}
	d := Default()
	if c.InferenceTimeoutMS == 0 {
		c.InferenceTimeoutMS = d.InferenceTimeoutMS
	}
	if c.InferenceConcurrency == 0 {
		c.InferenceConcurrency = d.InferenceConcurrency
	}
	return c
}

func (c Config) zero() bool {
	return !c.DocumentPrivate && c.MinExistingDocLen == 0 &&
		c.InferenceTimeoutMS == 0 && c.InferenceConcurrency == 0 &&
		len(c.Placeholders) == 0 && c.Inference == (Inference{}) && c.Log == (Log{})
}

// InferenceTimeout returns the per-item inference timeout.
func (c Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutMS) * time.Millisecond
}

var validate = validator.New()

// Validate checks option ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads a config file over the defaults. Options missing from the
// file keep their default values. Unknown options are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a config document. ext selects the format: ".toml",
// ".yaml" or ".yml".
func Decode(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return Config{}, fmt.Errorf("unknown options: %s", strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Find walks up from startDir looking for one of FileNames.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
