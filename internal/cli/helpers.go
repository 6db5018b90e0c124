package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/supplyviz/internal/datasource"
	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/loader"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
)

func setupGlobals(cmd *cobra.Command, args []string) error {
	dbg, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("failed to read --debug flag: %w", err)
	}
	if dbg {
		debug.SetEnabled(true)
	}
	withMetrics, err := cmd.Flags().GetBool("metrics")
	if err != nil {
		return fmt.Errorf("failed to read --metrics flag: %w", err)
	}
	if withMetrics {
		metrics.SetEnabled(true)
	}
	return nil
}

func reportMetrics(cmd *cobra.Command, args []string) error {
	withMetrics, err := cmd.Flags().GetBool("metrics")
	if err != nil || !withMetrics {
		return nil
	}
	return metrics.WriteReport(cmd.ErrOrStderr())
}

// loadConfig reads --config, falling back to the user config file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to read --config flag: %w", err)
	}
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// resolveSource picks the source argument, or the tree directory
// (SUPPLYVIZ_DIR or ./.supplyviz), or a tree document in the working
// directory.
func resolveSource(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if dir, err := loader.GetTreeDir(""); err == nil {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	p, err := loader.FindTreePathWithWarnings(cwd, func(msg string) {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	})
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("no source given and no tree document found in %s", cwd)
	}
	return p, nil
}

func openSource(ctx context.Context, args []string) (*datasource.Result, error) {
	path, err := resolveSource(args)
	if err != nil {
		return nil, err
	}
	res, err := datasource.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	debug.Log("cli: opened %s (%d nodes, %d edges)", res.Source, len(res.Elements.Nodes), len(res.Elements.Edges))
	return res, nil
}

// projectName derives a display name from a source path.
func projectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func stringFlag(cmd *cobra.Command, name string) (string, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return v, nil
}

func boolFlag(cmd *cobra.Command, name string) (bool, error) {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return v, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
