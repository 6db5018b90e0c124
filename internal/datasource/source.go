// Package datasource detects what kind of input a path holds and turns it
// into graph elements: a BOM tree document, a supply network to be solved,
// or a SQLite export previously written by sviz. For a directory it
// discovers every candidate and picks the freshest valid one.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/supplyviz/pkg/loader"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite export written by sviz export
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeNetwork is a supply network YAML document (kind: network)
	SourceTypeNetwork SourceType = "network"
	// SourceTypeTree is a JSON or YAML BOM tree document
	SourceTypeTree SourceType = "tree"
)

// Priority values for source types (higher = more authoritative)
const (
	PriorityTree    = 100
	PriorityNetwork = 80
	PrioritySQLite  = 50
)

// ErrNoSources is returned when discovery finds nothing usable.
var ErrNoSources = errors.New("no valid sources discovered")

// DataSource represents a potential source of supply data
type DataSource struct {
	Type            SourceType `json:"type"`
	Path            string     `json:"path"`
	Priority        int        `json:"priority"`
	ModTime         time.Time  `json:"mod_time"`
	Valid           bool       `json:"valid"`
	ValidationError string     `json:"validation_error,omitempty"`
	// NodeCount is the number of BOM tree nodes (set during validation)
	NodeCount int   `json:"node_count"`
	Size      int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

func priorityOf(t SourceType) int {
	switch t {
	case SourceTypeTree:
		return PriorityTree
	case SourceTypeNetwork:
		return PriorityNetwork
	default:
		return PrioritySQLite
	}
}

// sqliteMagic starts every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// DetectType sniffs the file at path.
func DetectType(path string) (SourceType, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, _ := f.Read(head)
	head = head[:n]
	if bytes.HasPrefix(head, sqliteMagic) {
		return SourceTypeSQLite, nil
	}
	// Networks are YAML only; anything else is treated as a tree.
	if !isYAML(path) {
		return SourceTypeTree, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if supply.IsNetworkDocument(data) {
		return SourceTypeNetwork, nil
	}
	return SourceTypeTree, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Describe builds a DataSource for a single file without validating it.
func Describe(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, err
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory", path)
	}
	typ, err := DetectType(path)
	if err != nil {
		return DataSource{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return DataSource{
		Type:     typ,
		Path:     abs,
		Priority: priorityOf(typ),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to scan (optional, loader.GetTreeDir when empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

func isCandidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml", ".sqlite3", ".sqlite", ".db":
		return true
	}
	return false
}

// DiscoverSources finds all potential data sources in a directory
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = loader.GetTreeDir(""); err != nil {
			return nil, err
		}
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || !isCandidate(e.Name()) {
			continue
		}
		s, err := Describe(filepath.Join(dir, e.Name()))
		if err != nil {
			if opts.Verbose {
				opts.Logger(fmt.Sprintf("Skipping %s: %v", e.Name(), err))
			}
			continue
		}
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", s.Type, s.Path, s.ModTime.Format(time.RFC3339)))
		}
		sources = append(sources, s)
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			var valid []DataSource
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// sortSources orders by freshness, then priority, then path.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].ModTime.After(sources[j].ModTime)
		}
		if sources[i].Priority != sources[j].Priority {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].Path < sources[j].Path
	})
}

// SelectBestSource returns the first valid source in discovery order.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, ErrNoSources
}

// ValidateSource loads the source and records whether it yields a tree.
func ValidateSource(s *DataSource) error {
	res, err := LoadFromSource(context.Background(), *s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.NodeCount = len(res.Elements.Nodes)
	if res.Tree != nil {
		s.NodeCount = res.Tree.Counts().Total()
	}
	return nil
}
