package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"regexp"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/matzehuels/chunksplit/pkg/errors"
)

// Algorithm selects the fingerprint hash.
type Algorithm string

const (
	XXHash64 Algorithm = "xxhash64"
	SHA256   Algorithm = "sha256"
)

// DefaultFilename is the output-name template used when none is configured.
const DefaultFilename = "{chunkName}_{fingerprint}.{ext}"

// Placeholders accepted in output-name templates.
var Placeholders = []string{"chunkName", "fingerprint", "ext"}

var placeholderRe = regexp.MustCompile(`\{(chunkName|fingerprint|ext)(?::([0-9]+))?\}`)

// NamerOptions configures a Namer.
type NamerOptions struct {
	// Filename is the default template. Empty means DefaultFilename.
	Filename string
	// Algorithm is the fingerprint hash. Empty means XXHash64.
	Algorithm Algorithm
}

// Namer fingerprints chunks and renders their output file names.
type Namer struct {
	filename string
	algo     Algorithm
}

// NewNamer validates opts and returns a Namer.
func NewNamer(opts NamerOptions) (*Namer, error) {
	n := &Namer{filename: opts.Filename, algo: opts.Algorithm}
	if n.filename == "" {
		n.filename = DefaultFilename
	}
	if n.algo == "" {
		n.algo = XXHash64
	}
	if n.algo != XXHash64 && n.algo != SHA256 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown fingerprint algorithm %q", n.algo)
	}
	if err := errors.ValidateTemplate(n.filename, Placeholders...); err != nil {
		return nil, err
	}
	return n, nil
}

// Fingerprint hashes the chunk's ordered members: each contributes its id and
// compiled content, NUL-separated. Equal member lists give equal fingerprints.
func (n *Namer) Fingerprint(c *Chunk) string {
	var h hash.Hash
	switch n.algo {
	case SHA256:
		h = sha256.New()
	default:
		h = xxhash.New()
	}
	for _, m := range c.Members {
		h.Write([]byte(m.ID))
		h.Write([]byte{0})
		h.Write(m.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Render substitutes the placeholders of tmpl for chunk c.
func Render(tmpl string, c *Chunk) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(s string) string {
		sub := placeholderRe.FindStringSubmatch(s)
		switch sub[1] {
		case "chunkName":
			return c.Name
		case "ext":
			return c.Ext()
		}
		fp := c.Fingerprint
		if sub[2] != "" {
			if k, err := strconv.Atoi(sub[2]); err == nil && k > 0 && k < len(fp) {
				fp = fp[:k]
			}
		}
		return fp
	})
}

// Name fingerprints and names every chunk of cg in place. templates maps a
// cache-group rule name to its template override.
//
// Two chunks resolving to the same file name yield an
// [errors.NamingConflictError]; cg must then be discarded.
func (n *Namer) Name(cg *Graph, templates map[string]string) error {
	byFile := make(map[string]string, cg.Len())
	for _, c := range cg.chunks {
		tmpl := n.filename
		if t := templates[c.Rule]; c.Rule != "" && t != "" {
			if err := errors.ValidateTemplate(t, Placeholders...); err != nil {
				return err
			}
			tmpl = t
		}

		c.Fingerprint = n.Fingerprint(c)
		c.Filename = Render(tmpl, c)
		if err := errors.ValidatePath(c.Filename); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTemplate, err, "chunk %q renders to %q", c.Name, c.Filename)
		}

		if prev, ok := byFile[c.Filename]; ok {
			return &errors.NamingConflictError{First: prev, Second: c.Name, Filename: c.Filename}
		}
		byFile[c.Filename] = c.Name
	}
	return nil
}
