package config

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
)

// Table converts the module list into a module table, reading content files
// relative to BaseDir.
func (c *Config) Table() (modgraph.Table, error) {
	table := make(modgraph.Table, len(c.Modules))
	for _, m := range c.Modules {
		kind, err := modgraph.ParseKind(m.Kind)
		if err != nil {
			return nil, err
		}
		content := []byte(m.Content)
		if m.ContentFile != "" {
			if content, err = c.readContent(m); err != nil {
				return nil, err
			}
		}
		table[m.ID] = modgraph.TableEntry{
			Kind:    kind,
			Path:    m.Path,
			Imports: append([]string(nil), m.Imports...),
			Content: content,
		}
	}
	return table, nil
}

func (c *Config) readContent(m Module) ([]byte, error) {
	if c.BaseDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "module %q: content_file is not allowed here", m.ID)
	}
	path := m.ContentFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "module %q content", m.ID)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "module %q content", m.ID)
	}
	return data, nil
}

// Request converts the configuration into a build request.
func (c *Config) Request() (pipeline.Request, error) {
	table, err := c.Table()
	if err != nil {
		return pipeline.Request{}, err
	}
	entries := make([]modgraph.Entry, len(c.Entries))
	for i, e := range c.Entries {
		entries[i] = modgraph.Entry{Name: e.Name, Roots: append([]string(nil), e.Roots...)}
	}
	return pipeline.Request{
		Entries: entries,
		Modules: table,
		Rules:   append(c.CacheGroups[:0:0], c.CacheGroups...),
		Output: pipeline.Output{
			Filename:    c.Output.Filename,
			Fingerprint: c.namerOptions().Algorithm,
		},
	}, nil
}

// Files returns the configuration-relative paths the build reads, for watch
// mode.
func (c *Config) Files() []string {
	var out []string
	if c.BaseDir == "" {
		return nil
	}
	for _, m := range c.Modules {
		if m.ContentFile == "" {
			continue
		}
		path := m.ContentFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.BaseDir, path)
		}
		out = append(out, path)
	}
	return out
}
