package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
)

const stylesTOML = `
[output]
filename = "{chunkName}.{fingerprint:8}.{ext}"

[[entries]]
name = "app"
roots = ["index"]

[[entries]]
name = "vendorStyles"
roots = ["bootstrap.scss"]

[[modules]]
id = "index"
imports = ["button.scss"]
content = "render()"

[[modules]]
id = "button.scss"
kind = "style"

[[modules]]
id = "bootstrap.scss"
kind = "style"

[[cache_groups]]
name = "appStyles"
priority = 10
[cache_groups.test]
kind = "all"
all = [{ kind = "asset-kind", value = "style" }, { kind = "issuer-entry", value = "app" }]

[[cache_groups]]
name = "vendorStyles"
[cache_groups.test]
kind = "all"
all = [{ kind = "asset-kind", value = "style" }, { kind = "issuer-entry", value = "vendorStyles" }]
`

const stylesYAML = `
output:
  filename: "{chunkName}.{fingerprint:8}.{ext}"
entries:
  - name: app
    roots: [index]
  - name: vendorStyles
    roots: [bootstrap.scss]
modules:
  - id: index
    imports: [button.scss]
    content: render()
  - id: button.scss
    kind: style
  - id: bootstrap.scss
    kind: style
cache_groups:
  - name: appStyles
    priority: 10
    test:
      kind: all
      all:
        - {kind: asset-kind, value: style}
        - {kind: issuer-entry, value: app}
  - name: vendorStyles
    test:
      kind: all
      all:
        - {kind: asset-kind, value: style}
        - {kind: issuer-entry, value: vendorStyles}
`

const stylesJSON = `{
  "output": {"filename": "{chunkName}.{fingerprint:8}.{ext}"},
  "entries": [
    {"name": "app", "roots": ["index"]},
    {"name": "vendorStyles", "roots": ["bootstrap.scss"]}
  ],
  "modules": [
    {"id": "index", "imports": ["button.scss"], "content": "render()"},
    {"id": "button.scss", "kind": "style"},
    {"id": "bootstrap.scss", "kind": "style"}
  ],
  "cache_groups": [
    {"name": "appStyles", "priority": 10, "test": {"kind": "all", "all": [
      {"kind": "asset-kind", "value": "style"}, {"kind": "issuer-entry", "value": "app"}]}},
    {"name": "vendorStyles", "test": {"kind": "all", "all": [
      {"kind": "asset-kind", "value": "style"}, {"kind": "issuer-entry", "value": "vendorStyles"}]}}
  ]
}`

var ignorePredicateCache = cmpopts.IgnoreUnexported(cachegroup.Predicate{})

func quietRunner() *pipeline.Runner {
	return pipeline.NewRunner(nil, nil, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestParseFormatsAgree(t *testing.T) {
	want, err := Parse([]byte(stylesTOML), FormatTOML)
	if err != nil {
		t.Fatalf("Parse(toml): %v", err)
	}
	if len(want.CacheGroups) != 2 || want.CacheGroups[0].Priority != 10 {
		t.Fatalf("cache groups = %+v", want.CacheGroups)
	}

	for _, tt := range []struct {
		format Format
		data   string
	}{
		{FormatYAML, stylesYAML},
		{FormatJSON, stylesJSON},
	} {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(want, got, ignorePredicateCache, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("config mismatch (-toml +%s):\n%s", tt.format, diff)
			}
		})
	}
}

func TestRequestBuildsScenario(t *testing.T) {
	cfg, err := Parse([]byte(stylesTOML), FormatTOML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	req, err := cfg.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Modules["index"].Kind != modgraph.KindScript {
		t.Errorf("index kind = %q, want script default", req.Modules["index"].Kind)
	}

	res, err := quietRunner().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := make(map[string][]string)
	for name, c := range res.Manifest {
		got[name] = c.Members
	}
	want := map[string][]string{
		"app":          {"index"},
		"appStyles":    {"button.scss"},
		"vendorStyles": {"bootstrap.scss"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
	if f := res.Manifest["appStyles"].File; !strings.HasPrefix(f, "appStyles.") || !strings.HasSuffix(f, ".css") || len(f) != len("appStyles.12345678.css") {
		t.Errorf("appStyles file = %q", f)
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "webpack-styles", "chunksplit.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Files()) != 3 {
		t.Errorf("Files() = %v, want 3 content files", cfg.Files())
	}
	req, err := cfg.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	res, err := quietRunner().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := make(map[string][]string)
	for name, c := range res.Manifest {
		got[name] = c.Members
	}
	want := map[string][]string{
		"appEntry":     {"src/index.tsx", "src/app/app.tsx"},
		"app":          {"src/app/scss/appStyles.scss"},
		"vendorStyles": {"src/vendor/scss/vendor.scss", "node_modules/bootstrap/scss/bootstrap.scss"},
		"vendorScripts": {
			"node_modules/@popperjs/core/lib/index.js",
			"node_modules/bootstrap/dist/js/bootstrap.js",
			"node_modules/react/index.js",
			"node_modules/react-dom/index.js",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
	if f := res.Manifest["vendorScripts"].File; !strings.HasPrefix(f, "vendorBundle_") || !strings.HasSuffix(f, ".js") {
		t.Errorf("vendorScripts file = %q", f)
	}
	if f := res.Manifest["app"].File; !strings.HasSuffix(f, ".css") {
		t.Errorf("app styles file = %q, want .css", f)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		code   errors.Code
	}{
		{"unknown toml key", FormatTOML, stylesTOML + "\nbogus = 1\n", errors.ErrCodeInvalidConfig},
		{"unknown yaml key", FormatYAML, stylesYAML + "bogus: 1\n", errors.ErrCodeInvalidConfig},
		{"unknown json key", FormatJSON, `{"bogus": 1}`, errors.ErrCodeInvalidConfig},
		{"bad toml", FormatTOML, "[[entries]\n", errors.ErrCodeInvalidConfig},
		{"no entries", FormatTOML, "", errors.ErrCodeInvalidConfig},
		{"entry without roots", FormatTOML, "[[entries]]\nname = \"a\"\n", errors.ErrCodeInvalidConfig},
		{"duplicate entry", FormatTOML, "[[entries]]\nname = \"a\"\nroots = [\"x\"]\n[[entries]]\nname = \"a\"\nroots = [\"y\"]\n", errors.ErrCodeInvalidConfig},
		{"entry with slash", FormatTOML, "[[entries]]\nname = \"a/b\"\nroots = [\"x\"]\n", errors.ErrCodeInvalidConfig},
		{"duplicate module", FormatTOML, "[[entries]]\nname = \"a\"\nroots = [\"x\"]\n[[modules]]\nid = \"x\"\n[[modules]]\nid = \"x\"\n", errors.ErrCodeInvalidConfig},
		{"bad kind", FormatTOML, "[[entries]]\nname = \"a\"\nroots = [\"x\"]\n[[modules]]\nid = \"x\"\nkind = \"image\"\n", errors.ErrCodeInvalidConfig},
		{"content twice", FormatTOML, "[[entries]]\nname = \"a\"\nroots = [\"x\"]\n[[modules]]\nid = \"x\"\ncontent = \"1\"\ncontent_file = \"x.js\"\n", errors.ErrCodeInvalidConfig},
		{"bad rule", FormatTOML, "[[entries]]\nname = \"a\"\nroots = [\"x\"]\n[[cache_groups]]\nname = \"g\"\n[cache_groups.test]\nkind = \"size\"\n", errors.ErrCodeInvalidRule},
		{"bad template", FormatTOML, "[output]\nfilename = \"{hash}.js\"\n[[entries]]\nname = \"a\"\nroots = [\"x\"]\n", errors.ErrCodeInvalidTemplate},
		{"bad algorithm", FormatTOML, "[output]\nfingerprint = \"md5\"\n[[entries]]\nname = \"a\"\nroots = [\"x\"]\n", errors.ErrCodeInvalidConfig},
		{"bad format", Format("ini"), "", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if !errors.Is(err, tt.code) {
				t.Errorf("Parse() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestContentFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte("compiled"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := "[[entries]]\nname = \"a\"\nroots = [\"index\"]\n[[modules]]\nid = \"index\"\ncontent_file = \"index.js\"\n"
	path := filepath.Join(dir, "chunksplit.toml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table, err := cfg.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if string(table["index"].Content) != "compiled" {
		t.Errorf("content = %q, want compiled", table["index"].Content)
	}

	// Parsed from bytes there is no base directory to read from.
	parsed, err := Parse([]byte(src), FormatTOML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := parsed.Table(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Table() error = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}

	if err := os.Remove(filepath.Join(dir, "index.js")); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Table(); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Table() error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
	if _, err := Load(filepath.Join(dir, "config.ini")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Load(ini) error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.toml":      FormatTOML,
		"a.yaml":      FormatYAML,
		"dir/b.YML":   FormatYAML,
		"build.json":  FormatJSON,
		"chunks.TOML": FormatTOML,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}
