package cachegroup

import (
	"regexp"
	"strings"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// PredicateKind tags the variant held by a [Predicate].
type PredicateKind string

const (
	// PathPrefix matches modules whose path starts with the segments of
	// Value ("src/app" matches "src/app/main.ts" but not "src/apps/x.ts").
	PathPrefix PredicateKind = "path-prefix"
	// PathSegment matches modules whose path contains the segments of Value
	// anywhere ("node_modules" matches "app/node_modules/react/index.js").
	PathSegment PredicateKind = "path-segment"
	// PathPattern matches modules whose path matches the regular expression Pattern.
	PathPattern PredicateKind = "path-pattern"
	// AssetKind matches modules of kind Value ("script" or "style").
	AssetKind PredicateKind = "asset-kind"
	// IssuerEntry matches modules whose resolved issuer entry is Value.
	IssuerEntry PredicateKind = "issuer-entry"
	// All matches when every predicate in All matches.
	All PredicateKind = "all"
	// Any matches when at least one predicate in Any matches.
	Any PredicateKind = "any"
)

// Predicate is a data-driven test over (module, issuer entry). Only the
// fields relevant to Kind are read.
type Predicate struct {
	Kind    PredicateKind `json:"kind" toml:"kind" yaml:"kind"`
	Value   string        `json:"value,omitempty" toml:"value,omitempty" yaml:"value,omitempty"`
	Pattern string        `json:"pattern,omitempty" toml:"pattern,omitempty" yaml:"pattern,omitempty"`
	All     []Predicate   `json:"all,omitempty" toml:"all,omitempty" yaml:"all,omitempty"`
	Any     []Predicate   `json:"any,omitempty" toml:"any,omitempty" yaml:"any,omitempty"`

	re *regexp.Regexp
}

// Rule is a named cache group. Modules matching Test are pulled out of their
// entry's chunk into the chunk named Chunk.
type Rule struct {
	Name string `json:"name" toml:"name" yaml:"name"`
	// Chunk is the target chunk name; defaults to Name.
	Chunk string `json:"chunk,omitempty" toml:"chunk,omitempty" yaml:"chunk,omitempty"`
	// Priority is recorded for reporting only. Rules are always evaluated in
	// list order and the first match wins.
	Priority int `json:"priority,omitempty" toml:"priority,omitempty" yaml:"priority,omitempty"`
	// Enforce is accepted for compatibility. There is no size threshold, so
	// every rule behaves as enforced.
	Enforce bool `json:"enforce,omitempty" toml:"enforce,omitempty" yaml:"enforce,omitempty"`
	Test    Predicate `json:"test" toml:"test" yaml:"test"`
	// Filename overrides the output-name template for this group's chunk.
	Filename string `json:"filename,omitempty" toml:"filename,omitempty" yaml:"filename,omitempty"`
}

// ChunkName returns the chunk this rule assigns modules to.
func (r Rule) ChunkName() string {
	if r.Chunk != "" {
		return r.Chunk
	}
	return r.Name
}

// compile validates p and caches compiled patterns in place.
func (p *Predicate) compile(path string) error {
	switch p.Kind {
	case PathPrefix, PathSegment:
		if normalizePath(p.Value) == "" {
			return errors.New(errors.ErrCodeInvalidRule, "%s: %s needs a value", path, p.Kind)
		}
	case PathPattern:
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRule, err, "%s: invalid pattern %q", path, p.Pattern)
		}
		p.re = re
	case AssetKind:
		if !modgraph.Kind(p.Value).Valid() {
			return errors.New(errors.ErrCodeInvalidRule, "%s: unknown asset kind %q", path, p.Value)
		}
	case IssuerEntry:
		if p.Value == "" {
			return errors.New(errors.ErrCodeInvalidRule, "%s: issuer-entry needs a value", path)
		}
	case All:
		for i := range p.All {
			if err := p.All[i].compile(path + ".all"); err != nil {
				return err
			}
		}
	case Any:
		if len(p.Any) == 0 {
			return errors.New(errors.ErrCodeInvalidRule, "%s: any needs at least one predicate", path)
		}
		for i := range p.Any {
			if err := p.Any[i].compile(path + ".any"); err != nil {
				return err
			}
		}
	default:
		return errors.New(errors.ErrCodeInvalidRule, "%s: unknown predicate kind %q", path, p.Kind)
	}
	return nil
}

// Match evaluates p against module m whose resolved issuer entry is entry.
// An empty entry means the module has no owning entry; such a module never
// matches, whatever the predicate.
func Match(p *Predicate, m *modgraph.Module, entry string) bool {
	if entry == "" {
		return false
	}
	return match(p, m, entry)
}

func match(p *Predicate, m *modgraph.Module, entry string) bool {
	switch p.Kind {
	case PathPrefix:
		return hasSegments(m.Path, p.Value, strings.HasPrefix)
	case PathSegment:
		return hasSegments(m.Path, p.Value, strings.Contains)
	case PathPattern:
		if p.re == nil {
			ok, _ := regexp.MatchString(p.Pattern, m.Path)
			return ok
		}
		return p.re.MatchString(m.Path)
	case AssetKind:
		return string(m.Kind) == p.Value
	case IssuerEntry:
		return entry == p.Value
	case All:
		for i := range p.All {
			if !match(&p.All[i], m, entry) {
				return false
			}
		}
		return true
	case Any:
		for i := range p.Any {
			if match(&p.Any[i], m, entry) {
				return true
			}
		}
		return false
	}
	return false
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.Trim(p, "/")
}

// hasSegments applies test to the slash-wrapped normalized path and value,
// so only whole segments can match.
func hasSegments(path, value string, test func(s, sub string) bool) bool {
	value = normalizePath(value)
	if value == "" {
		return false
	}
	return test("/"+normalizePath(path)+"/", "/"+value+"/")
}
