// Package manifest reads and writes the chunk manifest produced by a build.
//
// A manifest maps each chunk name to its ordered member module ids and its
// rendered output file name:
//
//	{
//	  "app": {
//	    "members": ["src/index.tsx"],
//	    "file": "app_3f2a9c1d0b7e4a65.js",
//	    "fingerprint": "3f2a9c1d0b7e4a65"
//	  },
//	  "appStyles": {
//	    "members": ["src/button.scss"],
//	    "file": "appStyles_91c0e2d4f5a6b7c8.css",
//	    "fingerprint": "91c0e2d4f5a6b7c8"
//	  }
//	}
//
// Encoding is deterministic: object keys are sorted and member order is the
// order in which the build assigned modules to chunks. Two builds of the same
// input therefore produce byte-identical manifests.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/errors"
)

// Manifest maps chunk names to their contents.
type Manifest map[string]Chunk

// Chunk is one manifest record.
type Chunk struct {
	Members     []string `json:"members"`
	File        string   `json:"file"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// FromGraph converts a named chunk graph into a manifest.
func FromGraph(cg *chunk.Graph) Manifest {
	m := make(Manifest, cg.Len())
	for _, c := range cg.Chunks() {
		m[c.Name] = Chunk{
			Members:     c.MemberIDs(),
			File:        c.Filename,
			Fingerprint: c.Fingerprint,
		}
	}
	return m
}

// Names returns the chunk names in sorted order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleCount returns the total number of member modules.
func (m Manifest) ModuleCount() int {
	n := 0
	for _, c := range m {
		n += len(c.Members)
	}
	return n
}

// ChunkOf returns the name of the chunk listing module id.
func (m Manifest) ChunkOf(id string) (string, bool) {
	for _, name := range m.Names() {
		for _, mem := range m[name].Members {
			if mem == id {
				return name, true
			}
		}
	}
	return "", false
}

// Validate checks that every chunk has members and a file, that no module is
// listed twice, and that no two chunks share a file.
func (m Manifest) Validate() error {
	owner := make(map[string]string)
	files := make(map[string]string)
	for _, name := range m.Names() {
		c := m[name]
		if len(c.Members) == 0 {
			return errors.New(errors.ErrCodeInvalidFormat, "chunk %q has no members", name)
		}
		if c.File == "" {
			return errors.New(errors.ErrCodeInvalidFormat, "chunk %q has no file", name)
		}
		if prev, ok := files[c.File]; ok {
			return errors.New(errors.ErrCodeInvalidFormat, "chunks %q and %q share file %q", prev, name, c.File)
		}
		files[c.File] = name
		for _, id := range c.Members {
			if prev, ok := owner[id]; ok {
				return errors.New(errors.ErrCodeInvalidFormat, "module %q listed in both %q and %q", id, prev, name)
			}
			owner[id] = name
		}
	}
	return nil
}

// Marshal encodes m as indented JSON with a trailing newline.
func Marshal(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes m as indented JSON to w.
func Write(m Manifest, w io.Writer) error {
	if m == nil {
		m = Manifest{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes and validates a manifest from r.
func Read(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadFile reads the manifest at path.
func ReadFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes m to path, replacing any existing file.
func WriteFile(path string, m Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
