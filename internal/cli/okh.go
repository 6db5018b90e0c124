package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/supplyviz/pkg/okh"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

func RunOKHValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err == nil {
			err = okh.Validate(data)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok    %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d manifests invalid", failed, len(args))
	}
	return nil
}

func RunOKHRefine(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	catalog := okh.DefaultCatalog()
	for _, path := range args {
		m, err := okh.LoadManifest(path)
		if err != nil {
			return err
		}
		if m.Refined() {
			fmt.Fprintf(out, "skip  %s: already refined\n", path)
			continue
		}
		unresolved := m.Refine(catalog)
		target := filepath.Join(filepath.Dir(path), okh.RefinedFileName(filepath.Base(path)))
		if err := m.Save(target); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", target)
		for _, u := range unresolved {
			fmt.Fprintf(cmd.ErrOrStderr(), "  unresolved: %s\n", u)
		}
	}
	return nil
}

func RunOKHSupplies(cmd *cobra.Command, args []string) error {
	workshopsPath, err := stringFlag(cmd, "workshops")
	if err != nil {
		return err
	}
	name, err := stringFlag(cmd, "name")
	if err != nil {
		return err
	}
	output, err := stringFlag(cmd, "output")
	if err != nil {
		return err
	}

	workshops, err := loadWorkshops(workshopsPath)
	if err != nil {
		return err
	}
	fed := okh.Federation{Name: name, Workshops: workshops}
	for _, path := range args {
		m, err := okh.LoadManifest(path)
		if err != nil {
			return err
		}
		fed.Manifests = append(fed.Manifests, m)
	}

	out := cmd.OutOrStdout()
	if output != "" {
		goal := ""
		if len(fed.Manifests) == 1 {
			goal = fed.Manifests[0].Title
		}
		data, err := supply.MarshalNetwork(fed.Network(), goal)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", output)
		return nil
	}

	supplies := fed.Supplies()
	if len(supplies) == 0 {
		fmt.Fprintln(out, "No workshop has the tooling for these manifests")
		return nil
	}
	for _, s := range supplies {
		fmt.Fprintf(out, "%s: %s <- %s\n", s.Name, strings.Join(s.Outputs, ", "), strings.Join(s.Inputs, ", "))
	}
	return nil
}

// loadWorkshops reads a YAML list of workshops, or a document with a
// top-level workshops key.
func loadWorkshops(path string) ([]okh.Workshop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workshops: %w", err)
	}
	var list []okh.Workshop
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Workshops []okh.Workshop `yaml:"workshops"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workshops: %w", err)
	}
	return doc.Workshops, nil
}
