package cachegroup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// DefaultWorkers bounds the number of concurrent classification batches.
const DefaultWorkers = 8

const batchSize = 256

// Assignment records the classification of one module.
type Assignment struct {
	Module string `json:"module"`
	// Entry is the resolved issuer entry; empty for an orphan.
	Entry string `json:"entry,omitempty"`
	// Rule is the name of the matching rule; empty when unmatched.
	Rule string `json:"rule,omitempty"`
	// Chunk is the target chunk: the rule's chunk, else Entry.
	Chunk string `json:"chunk"`
}

// Matched reports whether a cache-group rule claimed the module.
func (a Assignment) Matched() bool { return a.Rule != "" }

// Classifier evaluates an ordered rule list. The first matching rule wins;
// rules are never reordered.
type Classifier struct {
	rules []Rule
}

// New validates rules and returns a classifier over a private copy of them.
func New(rules []Rule) (*Classifier, error) {
	compiled := make([]Rule, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if err := errors.ValidateName("cache group", r.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRule, err, "rule %d", i)
		}
		if seen[r.Name] {
			return nil, errors.New(errors.ErrCodeInvalidRule, "duplicate cache group %q", r.Name)
		}
		seen[r.Name] = true
		if r.Chunk != "" {
			if err := errors.ValidateName("chunk", r.Chunk); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidRule, err, "rule %q", r.Name)
			}
		}
		r.Test = clonePredicate(r.Test)
		if err := r.Test.compile(fmt.Sprintf("rule %q test", r.Name)); err != nil {
			return nil, err
		}
		compiled[i] = r
	}
	return &Classifier{rules: compiled}, nil
}

// Validate reports the first invalid rule without building a classifier.
func Validate(rules []Rule) error {
	_, err := New(rules)
	return err
}

// Classify validates rules and classifies every module of g with them.
func Classify(ctx context.Context, g *modgraph.Graph, r *modgraph.Resolver, rules []Rule, opts Options) ([]Assignment, error) {
	c, err := New(rules)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, g, r, opts)
}

// Rules returns the validated rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Rule returns the rule with the given name.
func (c *Classifier) Rule(name string) (Rule, bool) {
	for _, r := range c.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Match returns the first rule whose predicate holds for m.
func (c *Classifier) Match(m *modgraph.Module, entry string) (Rule, bool) {
	for i := range c.rules {
		if Match(&c.rules[i].Test, m, entry) {
			return c.rules[i], true
		}
	}
	return Rule{}, false
}

// Assign classifies a single module.
func (c *Classifier) Assign(m *modgraph.Module, r *modgraph.Resolver) Assignment {
	entry, _ := r.Resolve(m.ID)
	a := Assignment{Module: m.ID, Entry: entry, Chunk: entry}
	if rule, ok := c.Match(m, entry); ok {
		a.Rule = rule.Name
		a.Chunk = rule.ChunkName()
	}
	return a
}

// Options configures [Classifier.Classify].
type Options struct {
	// Workers is the maximum number of concurrent batches. Zero means DefaultWorkers.
	Workers int
}

// Classify assigns every module of g to a target chunk. Modules are classified
// concurrently in batches; the result is indexed by module discovery order, so
// it does not depend on scheduling.
func (c *Classifier) Classify(ctx context.Context, g *modgraph.Graph, r *modgraph.Resolver, opts Options) ([]Assignment, error) {
	mods := g.Modules()
	out := make([]Assignment, len(mods))

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for start := 0; start < len(mods); start += batchSize {
		end := min(start+batchSize, len(mods))
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = c.Assign(mods[i], r)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats summarizes a classification.
type Stats struct {
	// Matches counts modules per rule name, including rules that matched nothing.
	Matches map[string]int
	// Unmatched counts modules left in their entry chunk.
	Unmatched int
	// Orphans lists modules without a resolvable issuer entry.
	Orphans []string
}

// Tally computes Stats for assignments produced by c.
func (c *Classifier) Tally(assignments []Assignment) Stats {
	s := Stats{Matches: make(map[string]int, len(c.rules))}
	for _, r := range c.rules {
		s.Matches[r.Name] = 0
	}
	for _, a := range assignments {
		switch {
		case a.Matched():
			s.Matches[a.Rule]++
		case a.Entry == "":
			s.Orphans = append(s.Orphans, a.Module)
		default:
			s.Unmatched++
		}
	}
	return s
}

func clonePredicate(p Predicate) Predicate {
	out := p
	out.re = nil
	if p.All != nil {
		out.All = make([]Predicate, len(p.All))
		for i := range p.All {
			out.All[i] = clonePredicate(p.All[i])
		}
	}
	if p.Any != nil {
		out.Any = make([]Predicate, len(p.Any))
		for i := range p.Any {
			out.Any[i] = clonePredicate(p.Any[i])
		}
	}
	return out
}
