package loader

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// TreeDirEnvVar names a directory to look for tree documents in.
const TreeDirEnvVar = "SUPPLYVIZ_DIR"

// SupportedVersions is the semver constraint enveloped documents must meet.
const SupportedVersions = "^1"

// PreferredTreeNames defines the priority order for looking up tree documents.
var PreferredTreeNames = []string{"supply.json", "supply.yaml", "supply.yml", "tree.json", "tree.yaml", "tree.yml"}

var (
	// ErrUnsupportedVersion is returned for envelopes outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported document version")
	// ErrSchema wraps schema violations.
	ErrSchema = errors.New("document does not match the tree schema")
)

// Envelope is the versioned wrapper around a tree:
//
//	{"version": "1.0", "tree": {...}}
type Envelope struct {
	Version string     `json:"version" yaml:"version"`
	Tree    model.Tree `json:"tree" yaml:"tree"`
}

// GetTreeDir returns the directory holding tree documents, respecting
// SUPPLYVIZ_DIR. Otherwise it is .supplyviz under repoPath (or the working
// directory when repoPath is empty).
func GetTreeDir(repoPath string) (string, error) {
	if envDir := os.Getenv(TreeDirEnvVar); envDir != "" {
		return envDir, nil
	}
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	return filepath.Join(repoPath, ".supplyviz"), nil
}

// IsTreeFile reports whether name has an extension the loader reads.
func IsTreeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func skippable(name string) bool {
	return strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.HasPrefix(name, ".")
}

// FindTreePath locates the tree document in dir.
func FindTreePath(dir string) (string, error) {
	return FindTreePathWithWarnings(dir, nil)
}

// FindTreePathWithWarnings is like FindTreePath but reports skipped backup
// files through warnFunc.
func FindTreePathWithWarnings(dir string, warnFunc func(msg string)) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read tree directory: %w", err)
	}

	var candidates, skipped []string
	for _, e := range entries {
		if e.IsDir() || !IsTreeFile(e.Name()) {
			continue
		}
		if skippable(e.Name()) {
			skipped = append(skipped, e.Name())
			continue
		}
		candidates = append(candidates, e.Name())
	}

	if len(skipped) > 0 && warnFunc != nil {
		warnFunc(fmt.Sprintf("Ignoring backup files: %s", strings.Join(skipped, ", ")))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no tree document found in %s", dir)
	}

	for _, preferred := range PreferredTreeNames {
		for _, name := range candidates {
			if name == preferred {
				p := filepath.Join(dir, name)
				if info, err := os.Stat(p); err == nil && info.Size() > 0 {
					return p, nil
				}
			}
		}
	}
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Size() > 0 {
			return p, nil
		}
	}
	return filepath.Join(dir, candidates[0]), nil
}

// Load reads a tree from a local path or any URL afs understands.
func Load(ctx context.Context, location string) (model.Tree, error) {
	defer metrics.Timer(metrics.TreeLoad)()

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return model.Tree{}, fmt.Errorf("reading %s: %w", location, err)
	}
	t, err := Parse(data)
	if err != nil {
		return model.Tree{}, fmt.Errorf("%s: %w", path.Base(location), err)
	}
	debug.Log("loader: %s: %d nodes", location, t.Counts().Total())
	return t, nil
}

// Parse decodes a JSON or YAML tree document, bare or enveloped, and
// validates it against the tree schema and the model rules.
func Parse(data []byte) (model.Tree, error) {
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Tree{}, errors.New("empty document")
	}

	var raw any
	// YAML is a superset of JSON, so one decoder covers both.
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.Tree{}, fmt.Errorf("parsing document: %w", err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return model.Tree{}, fmt.Errorf("parsing document: expected an object, got %T", raw)
	}

	if inner, wrapped := doc["tree"]; wrapped {
		if err := checkVersion(doc["version"]); err != nil {
			return model.Tree{}, err
		}
		raw = inner
	}

	js, err := json.Marshal(raw)
	if err != nil {
		return model.Tree{}, fmt.Errorf("converting document: %w", err)
	}
	if err := validateSchema(js); err != nil {
		return model.Tree{}, err
	}
	var t model.Tree
	if err := json.Unmarshal(js, &t); err != nil {
		return model.Tree{}, fmt.Errorf("decoding tree: %w", err)
	}
	if err := t.Validate(); err != nil {
		return model.Tree{}, err
	}
	return t, nil
}

func checkVersion(v any) error {
	s, _ := v.(string)
	if s == "" {
		if f, ok := v.(float64); ok {
			s = fmt.Sprint(f)
		} else if i, ok := v.(int); ok {
			s = fmt.Sprint(i)
		}
	}
	if s == "" {
		return fmt.Errorf("%w: envelope has no version", ErrUnsupportedVersion)
	}
	version, err := semver.NewVersion(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, s, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(version) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, s, SupportedVersions)
	}
	return nil
}

//go:embed schema/tree.schema.json
var treeSchema string

const treeSchemaURL = "tree.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(treeSchemaURL, strings.NewReader(treeSchema)); err != nil {
			schemaErr = fmt.Errorf("adding tree schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(treeSchemaURL)
	})
	return schema, schemaErr
}

func validateSchema(js []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("converting document: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Marshal encodes t as an enveloped JSON document.
func Marshal(t model.Tree) ([]byte, error) {
	return json.MarshalIndent(Envelope{Version: "1.0.0", Tree: t}, "", "  ")
}

// LoadResult is the outcome of loading one file of a directory.
type LoadResult struct {
	Path string
	Tree model.Tree
	Err  error
}

// MaxParallelLoads caps concurrent reads in LoadDir.
const MaxParallelLoads = 16

// LoadDir loads every tree document in dir concurrently. Per-file failures
// are reported in the results, in directory order; the returned error is
// only set when the directory itself cannot be listed.
func LoadDir(ctx context.Context, dir string) ([]LoadResult, error) {
	fs := afs.New()
	objects, err := fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var locations []string
	for _, o := range objects {
		if o.IsDir() || !IsTreeFile(o.Name()) || skippable(o.Name()) {
			continue
		}
		locations = append(locations, o.URL())
	}

	results := make([]LoadResult, len(locations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelLoads)
	for i, loc := range locations {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Path: loc, Err: ctx.Err()}
				return nil
			default:
			}
			t, err := Load(ctx, loc)
			results[i] = LoadResult{Path: loc, Tree: t, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	debug.Log("loader: loaded %d documents from %s", len(results), dir)
	return results, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
