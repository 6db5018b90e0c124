package datasource

import (
	"context"
	"fmt"
	"os"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/export"
	"github.com/vanderheijden86/supplyviz/pkg/loader"
	"github.com/vanderheijden86/supplyviz/pkg/model"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// Result is what a source yields. Tree is nil for SQLite exports written
// without a tree. Solution and Cost are only set for network sources.
type Result struct {
	Source   DataSource
	Tree     *model.Tree
	Elements elements.Elements
	Solution *supply.SupplyTree
	Cost     float64
}

// Open loads path, which may be a file or a directory. For a directory the
// freshest valid source wins.
func Open(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		s, err := Describe(path)
		if err != nil {
			return nil, err
		}
		return LoadFromSource(ctx, s)
	}

	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    path,
		ValidateAfterDiscovery: true,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("datasource: %s", msg) },
	})
	if err != nil {
		return nil, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return LoadFromSource(ctx, best)
}

// LoadFromSource loads a specific DataSource, dispatching on its type.
func LoadFromSource(ctx context.Context, source DataSource) (*Result, error) {
	switch source.Type {
	case SourceTypeTree:
		t, err := loader.Load(ctx, source.Path)
		if err != nil {
			return nil, err
		}
		return fromTree(source, t)

	case SourceTypeNetwork:
		doc, err := supply.LoadNetwork(source.Path)
		if err != nil {
			return nil, err
		}
		best, cost, err := doc.Solve("")
		if err != nil {
			return nil, fmt.Errorf("solving %s: %w", source.Path, err)
		}
		res, err := fromTree(source, supply.ToBOM(best, doc.Network().Product))
		if err != nil {
			return nil, err
		}
		res.Solution, res.Cost = best, cost
		return res, nil

	case SourceTypeSQLite:
		snap, err := export.ReadSQLite(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		if len(snap.Elements.Nodes) == 0 {
			return nil, fmt.Errorf("SQLite source %s holds no nodes", source.Path)
		}
		return &Result{Source: source, Tree: snap.Tree, Elements: snap.Elements}, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

func fromTree(source DataSource, t model.Tree) (*Result, error) {
	e, err := elements.Build(t)
	if err != nil {
		return nil, err
	}
	return &Result{Source: source, Tree: &t, Elements: e}, nil
}
