package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/supplyviz/pkg/export"
)

func RunRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := openSource(cmd.Context(), args)
	if err != nil {
		return err
	}
	output, err := stringFlag(cmd, "output")
	if err != nil {
		return err
	}
	title, err := stringFlag(cmd, "title")
	if err != nil {
		return err
	}
	static, err := boolFlag(cmd, "static")
	if err != nil {
		return err
	}

	path, err := export.GenerateInteractiveGraphHTML(export.InteractiveGraphOptions{
		Elements:     res.Elements,
		Config:       cfg,
		Title:        firstNonEmpty(title, cfg.Export.Title),
		Path:         output,
		ProjectName:  projectName(res.Source.Path),
		StaticLayout: static,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d nodes, %d edges)\n", path, len(res.Elements.Nodes), len(res.Elements.Edges))
	return nil
}

func RunExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := openSource(cmd.Context(), args)
	if err != nil {
		return err
	}
	project := projectName(res.Source.Path)

	wizard, err := boolFlag(cmd, "wizard")
	if err != nil {
		return err
	}
	if wizard {
		answers, err := export.NewWizard(project, cfg).Run()
		if err != nil {
			return err
		}
		path, err := export.Perform(export.Request{
			Target:       answers.Target,
			Path:         answers.OutputPath,
			Title:        answers.Title,
			Project:      project,
			Elements:     res.Elements,
			Tree:         res.Tree,
			Config:       cfg,
			StaticLayout: answers.StaticLayout,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	}

	format, err := stringFlag(cmd, "format")
	if err != nil {
		return err
	}
	output, err := stringFlag(cmd, "output")
	if err != nil {
		return err
	}
	title, err := stringFlag(cmd, "title")
	if err != nil {
		return err
	}
	root, err := stringFlag(cmd, "root")
	if err != nil {
		return err
	}
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return fmt.Errorf("failed to read --depth flag: %w", err)
	}

	if format == "" {
		if output == "" || output == "-" {
			format = export.TargetJSON
		} else if t, ok := export.TargetFromPath(output); ok {
			format = t
		} else {
			return fmt.Errorf("cannot infer format from %q; pass --format", output)
		}
	}

	if gf, err := export.ParseGraphExportFormat(format); err == nil {
		result, err := export.ExportGraph(res.Elements, export.GraphExportConfig{
			Format: gf,
			Root:   root,
			Depth:  depth,
			Style:  cfg.Style,
		})
		if err != nil {
			return err
		}
		if output == "" || output == "-" {
			_, err := io.WriteString(cmd.OutOrStdout(), result.Graph)
			return err
		}
		if err := os.WriteFile(output, []byte(result.Graph), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d nodes, %d edges)\n", output, result.Nodes, result.Edges)
		return nil
	}

	if output == "-" {
		return fmt.Errorf("%s output cannot go to stdout", format)
	}
	elems := res.Elements
	if root != "" {
		if elems, err = export.UpstreamSubgraph(elems, root, depth); err != nil {
			return err
		}
	}
	path, err := export.Perform(export.Request{
		Target:   format,
		Path:     firstNonEmpty(output, export.DefaultOutputPath(project, format)),
		Title:    firstNonEmpty(title, cfg.Export.Title),
		Project:  project,
		Elements: elems,
		Tree:     res.Tree,
		Config:   cfg,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
