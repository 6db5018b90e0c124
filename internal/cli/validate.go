package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/supplyviz/internal/datasource"
	"github.com/vanderheijden86/supplyviz/pkg/loader"
	"github.com/vanderheijden86/supplyviz/pkg/okh"
	"github.com/vanderheijden86/supplyviz/pkg/stage"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// Document kinds reported by validate.
const (
	kindTree     = "tree"
	kindNetwork  = "network"
	kindManifest = "okh"
	kindSQLite   = "sqlite"
)

type validateResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
	Nodes int    `json:"nodes,omitempty"`
	Error string `json:"error,omitempty"`
}

func RunValidate(cmd *cobra.Command, args []string) error {
	asJSON, err := boolFlag(cmd, "json")
	if err != nil {
		return err
	}

	results := make([]validateResult, 0, len(args))
	failed := 0
	for _, path := range args {
		r := validateFile(cmd, path)
		if !r.Valid {
			failed++
		}
		results = append(results, r)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(out, "ok    %s (%s, %d nodes)\n", r.Path, r.Kind, r.Nodes)
			} else {
				fmt.Fprintf(out, "FAIL  %s (%s): %s\n", r.Path, r.Kind, r.Error)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents invalid", failed, len(results))
	}
	return nil
}

func validateFile(cmd *cobra.Command, path string) validateResult {
	r := validateResult{Path: path}
	fail := func(err error) validateResult {
		r.Error = err.Error()
		return r
	}

	typ, err := datasource.DetectType(path)
	if err != nil {
		return fail(err)
	}
	if typ == datasource.SourceTypeTree && isManifest(path) {
		r.Kind = kindManifest
		m, err := okh.LoadManifest(path)
		if err != nil {
			return fail(err)
		}
		r.Valid = true
		r.Nodes = len(m.BOMItems())
		return r
	}

	switch typ {
	case datasource.SourceTypeNetwork:
		r.Kind = kindNetwork
		doc, err := supply.LoadNetwork(path)
		if err != nil {
			return fail(err)
		}
		r.Nodes = len(doc.Network().GoodTypes())
	case datasource.SourceTypeSQLite:
		r.Kind = kindSQLite
		s, err := datasource.Describe(path)
		if err != nil {
			return fail(err)
		}
		res, err := datasource.LoadFromSource(cmd.Context(), s)
		if err != nil {
			return fail(err)
		}
		r.Nodes = len(res.Elements.Nodes)
	default:
		r.Kind = kindTree
		t, err := loader.Load(cmd.Context(), path)
		if err != nil {
			return fail(err)
		}
		r.Nodes = t.Counts().Total()
	}
	r.Valid = true
	return r
}

// isManifest sniffs a YAML document for the keys every OKH manifest has.
func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, hasTitle := doc["title"]
	_, hasBOM := doc["bom"]
	return hasTitle && hasBOM
}

func RunDiff(cmd *cobra.Command, args []string) error {
	a, err := datasource.Describe(args[0])
	if err != nil {
		return err
	}
	b, err := datasource.Describe(args[1])
	if err != nil {
		return err
	}
	diff, err := datasource.CompareSources(cmd.Context(), a, b)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(diff.Summary(), "\n"))
	if diff.HasInconsistencies() {
		return fmt.Errorf("sources differ")
	}
	return nil
}

func RunSolve(cmd *cobra.Command, args []string) error {
	doc, err := supply.LoadNetwork(args[0])
	if err != nil {
		return err
	}
	goal, err := stringFlag(cmd, "goal")
	if err != nil {
		return err
	}
	all, err := boolFlag(cmd, "all")
	if err != nil {
		return err
	}
	stages, err := boolFlag(cmd, "stages")
	if err != nil {
		return err
	}
	output, err := stringFlag(cmd, "output")
	if err != nil {
		return err
	}
	goal = firstNonEmpty(goal, doc.Goal)
	out := cmd.OutOrStdout()

	if all {
		p := supply.NewProblem(goal, doc.Network())
		for i, t := range p.Trees() {
			state := "complete"
			if !t.IsComplete() {
				state = "missing " + strings.Join(t.IncompleteGoods(), ", ")
			}
			fmt.Fprintf(out, "# tree %d (%s)\n%s\n", i+1, state, t.String())
		}
		fmt.Fprintf(out, "%d trees, %d complete\n", p.Count(), len(p.CompleteTrees()))
		return nil
	}

	best, cost, err := doc.Solve(goal)
	if err != nil {
		return err
	}
	fmt.Fprint(out, best.String())
	fmt.Fprintf(out, "cost: %g\n", cost)
	if stages {
		fmt.Fprintf(out, "\n%s", stage.NewGraph(best).String())
	}

	if output != "" {
		data, err := loader.Marshal(supply.ToBOM(best, doc.Network().Product))
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", output)
	}
	return nil
}
