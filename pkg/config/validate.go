package config

import (
	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// Validate checks the configuration without touching the file system.
func (c *Config) Validate() error {
	if len(c.Entries) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one entry is required")
	}
	entries := make(map[string]bool, len(c.Entries))
	for _, e := range c.Entries {
		if err := errors.ValidateName("entry", e.Name); err != nil {
			return err
		}
		if entries[e.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate entry %q", e.Name)
		}
		entries[e.Name] = true
		if len(e.Roots) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "entry %q has no roots", e.Name)
		}
	}

	ids := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		if err := errors.ValidateModuleID(m.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "modules[%d]", i)
		}
		if ids[m.ID] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate module %q", m.ID)
		}
		ids[m.ID] = true
		if _, err := modgraph.ParseKind(m.Kind); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "module %q", m.ID)
		}
		if m.Content != "" && m.ContentFile != "" {
			return errors.New(errors.ErrCodeInvalidConfig, "module %q sets both content and content_file", m.ID)
		}
	}

	if _, err := cachegroup.New(c.CacheGroups); err != nil {
		return err
	}
	_, err := chunk.NewNamer(c.namerOptions())
	return err
}

func (c *Config) namerOptions() chunk.NamerOptions {
	return chunk.NamerOptions{
		Filename:  c.Output.Filename,
		Algorithm: chunk.Algorithm(c.Output.Fingerprint),
	}
}
