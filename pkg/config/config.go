// Package config loads build configuration files.
//
// A configuration carries everything one build needs: the ordered entries,
// the module table produced by the compile front end, the ordered cache-group
// rules and the output naming options. TOML is the primary format; YAML and
// JSON files with the same schema are accepted:
//
//	[output]
//	filename = "{chunkName}_{fingerprint}.{ext}"
//	fingerprint = "xxhash64"
//
//	[[entries]]
//	name = "app"
//	roots = ["src/index.tsx"]
//
//	[[modules]]
//	id = "src/index.tsx"
//	imports = ["src/button.scss"]
//	content = "render(<App />)"
//
//	[[modules]]
//	id = "src/button.scss"
//	kind = "style"
//	content_file = "build/button.css"
//
//	[[cache_groups]]
//	name = "appStyles"
//	[cache_groups.test]
//	kind = "all"
//	all = [{ kind = "asset-kind", value = "style" },
//	       { kind = "issuer-entry", value = "app" }]
//
// Unknown keys are rejected in every format.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// Format is a configuration file format.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config is a parsed build configuration.
type Config struct {
	Output      Output            `toml:"output" yaml:"output" json:"output"`
	Entries     []modgraph.Entry  `toml:"entries" yaml:"entries" json:"entries"`
	Modules     []Module          `toml:"modules" yaml:"modules" json:"modules"`
	CacheGroups []cachegroup.Rule `toml:"cache_groups" yaml:"cache_groups" json:"cache_groups"`

	// BaseDir resolves content_file paths. Empty disallows content_file.
	BaseDir string `toml:"-" yaml:"-" json:"-"`
}

// Output configures output file naming.
type Output struct {
	Filename    string `toml:"filename" yaml:"filename" json:"filename,omitempty"`
	Fingerprint string `toml:"fingerprint" yaml:"fingerprint" json:"fingerprint,omitempty"`
}

// Module is one row of the module table.
type Module struct {
	ID      string   `toml:"id" yaml:"id" json:"id"`
	Kind    string   `toml:"kind" yaml:"kind" json:"kind,omitempty"`
	Path    string   `toml:"path" yaml:"path" json:"path,omitempty"`
	Imports []string `toml:"imports" yaml:"imports" json:"imports,omitempty"`
	// Content is the compiled content inline.
	Content string `toml:"content" yaml:"content" json:"content,omitempty"`
	// ContentFile names a file holding the compiled content, relative to
	// the configuration file.
	ContentFile string `toml:"content_file" yaml:"content_file" json:"content_file,omitempty"`
}

var extensions = map[string]Format{
	".toml": FormatTOML,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// Extensions lists the recognized config file extensions without the dot.
func Extensions() []string {
	return []string{"toml", "yaml", "yml", "json"}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported config file %q (want .toml, .yaml or .json)", filepath.Base(path))
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeInvalidConfig
		}
		return nil, errors.Wrap(code, err, "%s", path)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve %s", path)
	}
	cfg.BaseDir = abs
	return cfg, nil
}

// Parse decodes and validates data in the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode json")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
