package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/supplyviz/pkg/export"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sviz",
		Short: "Visualize bills of materials as supply graphs",
		Long: `sviz turns a bill of materials into a supply graph: every product,
who makes it and who supplies it. Open the graph in the browser, browse it
in the terminal, or export it as JSON, DOT, Mermaid, SVG, PNG or SQLite.

Sources are tree documents (JSON or YAML), supply network documents (solved
for their cheapest complete tree) or SQLite exports written by sviz.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupGlobals,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: $XDG_CONFIG_HOME/supplyviz/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().Bool("metrics", false, "Print timing metrics on exit")
	rootCmd.PersistentPostRunE = reportMetrics

	// Output Commands
	renderCmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Write the interactive HTML page for a source",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunRender,
	}
	renderCmd.Flags().StringP("output", "o", "", "Output file (default: <title>.html)")
	renderCmd.Flags().String("title", "", "Page title")
	renderCmd.Flags().Bool("static", false, "Embed precomputed positions instead of running dagre in the browser")

	exportCmd := &cobra.Command{
		Use:   "export [source]",
		Short: "Export a source to a file, or run the export wizard",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunExport,
	}
	exportCmd.Flags().StringP("format", "f", "", "Format: "+joinTargets()+" (default: from --output)")
	exportCmd.Flags().StringP("output", "o", "", "Output file, or - for stdout (json, dot and mermaid only)")
	exportCmd.Flags().String("title", "", "Title for html, svg, png and markdown output")
	exportCmd.Flags().String("root", "", "Only export the subgraph upstream of this node id")
	exportCmd.Flags().Int("depth", 0, "Max distance from --root (0 = unlimited)")
	exportCmd.Flags().Bool("wizard", false, "Ask for format, title and path interactively")

	// Interactive Commands
	viewCmd := &cobra.Command{
		Use:   "view [source]",
		Short: "Browse a source in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunView,
	}
	viewCmd.Flags().Bool("expand-all", false, "Start with every node expanded")
	viewCmd.Flags().Bool("no-watch", false, "Do not reload when the source changes")
	viewCmd.Flags().Bool("fresh", false, "Ignore saved view state")

	serveCmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Serve the interactive page with a click API",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunServe,
	}
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().String("title", "", "Page title")

	// Inspect Commands
	validateCmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check tree, network and OKH documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunValidate,
	}
	validateCmd.Flags().Bool("json", false, "Print machine-readable results")

	diffCmd := &cobra.Command{
		Use:   "diff <source> <source>",
		Short: "Compare the graphs of two sources",
		Args:  cobra.ExactArgs(2),
		RunE:  RunDiff,
	}

	solveCmd := &cobra.Command{
		Use:   "solve <network>",
		Short: "Solve a supply network for its cheapest complete tree",
		Args:  cobra.ExactArgs(1),
		RunE:  RunSolve,
	}
	solveCmd.Flags().String("goal", "", "Good to solve for (default: the document's goal)")
	solveCmd.Flags().StringP("output", "o", "", "Write the solution as a tree document")
	solveCmd.Flags().Bool("all", false, "List every tree, complete or not")
	solveCmd.Flags().Bool("stages", false, "Print the stage graph of the solution")

	okhCmd := &cobra.Command{
		Use:   "okh",
		Short: "Work with Open Know-How manifests",
	}
	okhValidateCmd := &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Validate manifests against the OKH schema",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunOKHValidate,
	}
	okhRefineCmd := &cobra.Command{
		Use:   "refine <manifest>...",
		Short: "Resolve BOM and tool entries to atoms, writing *_refined.yml",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunOKHRefine,
	}
	okhSuppliesCmd := &cobra.Command{
		Use:   "supplies <manifest>...",
		Short: "List the supplies workshops can offer for manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunOKHSupplies,
	}
	okhSuppliesCmd.Flags().StringP("workshops", "w", "", "YAML list of workshops and their tooling (required)")
	okhSuppliesCmd.Flags().String("name", "federation", "Network name")
	okhSuppliesCmd.Flags().StringP("output", "o", "", "Write a network document instead of listing")
	_ = okhSuppliesCmd.MarkFlagRequired("workshops")
	okhCmd.AddCommand(okhValidateCmd, okhRefineCmd, okhSuppliesCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sviz %s\n", version)
		},
	}

	rootCmd.AddCommand(
		renderCmd,
		exportCmd,
		viewCmd,
		serveCmd,
		validateCmd,
		diffCmd,
		solveCmd,
		okhCmd,
		versionCmd,
	)

	return rootCmd
}

func joinTargets() string {
	return strings.Join(export.Targets, "|")
}
