package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/supplyviz/internal/datasource"
	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
	"github.com/vanderheijden86/supplyviz/pkg/server"
	"github.com/vanderheijden86/supplyviz/pkg/ui"
	"github.com/vanderheijden86/supplyviz/pkg/watcher"
)

func RunView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := openSource(cmd.Context(), args)
	if err != nil {
		return err
	}
	expandAll, err := boolFlag(cmd, "expand-all")
	if err != nil {
		return err
	}
	noWatch, err := boolFlag(cmd, "no-watch")
	if err != nil {
		return err
	}
	fresh, err := boolFlag(cmd, "fresh")
	if err != nil {
		return err
	}

	opts := ui.Options{
		Title:       firstNonEmpty(cfg.Export.Title, projectName(res.Source.Path)),
		Interaction: interactOptions(cfg),
		ExpandAll:   expandAll || cfg.UI.ExpandAll,
		PanelWidth:  cfg.UI.PanelWidth,
	}
	if !fresh {
		opts.StatePath = viewStatePath(res.Source.Path)
	}
	if !noWatch {
		source := res.Source
		opts.WatchPath = source.Path
		opts.WatchOptions = []watcher.WatcherOption{watcher.WithKind(watchKind(source.Type))}
		opts.Load = func(ctx context.Context) (elements.Elements, error) {
			r, err := datasource.LoadFromSource(ctx, source)
			if err != nil {
				return elements.Elements{}, err
			}
			return r.Elements, nil
		}
	}

	m, err := ui.NewModel(res.Elements, opts)
	if err != nil {
		return err
	}
	return ui.Run(m)
}

// viewStatePath keys saved view state by the absolute source path.
func viewStatePath(source string) string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	key, err := elements.Hash(abs)
	if err != nil || len(key) < 16 {
		return ""
	}
	return filepath.Join(dir, "views", projectName(source)+"-"+key[:16]+".json")
}

func interactOptions(cfg config.Config) interact.Options {
	if len(cfg.Interaction.ToggleClasses) == 0 && len(cfg.Interaction.TooltipClasses) == 0 {
		return interact.DefaultOptions()
	}
	return interact.Options{
		ToggleClasses:  cfg.Interaction.ToggleClasses,
		TooltipClasses: cfg.Interaction.TooltipClasses,
	}
}

func RunServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := openSource(cmd.Context(), args)
	if err != nil {
		return err
	}
	addr, err := stringFlag(cmd, "addr")
	if err != nil {
		return err
	}
	title, err := stringFlag(cmd, "title")
	if err != nil {
		return err
	}

	srv, err := server.New(res.Elements, server.Options{
		Config: cfg,
		Title:  firstNonEmpty(title, cfg.Export.Title),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := res.Source
	w, err := watcher.NewWatcher(source.Path,
		watcher.WithKind(watchKind(source.Type)),
		watcher.WithOnChange(func() {
			r, err := datasource.LoadFromSource(ctx, source)
			if err == nil {
				err = srv.Reload(r.Elements)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "reload %s: %v\n", source.Path, err)
				return
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "reloaded %s (%d nodes)\n", source.Path, len(r.Elements.Nodes))
		}),
	)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: live reload unavailable: %v\n", err)
	} else {
		defer w.Stop()
	}

	return srv.Serve(ctx, addr, func(a net.Addr) {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", source.Path, a)
	})
}

// watchKind maps a detected source type to what the watcher follows. Trees
// and networks are plain documents; exports also change through their
// journal.
func watchKind(t datasource.SourceType) watcher.Kind {
	if t == datasource.SourceTypeSQLite {
		return watcher.KindSQLite
	}
	return watcher.KindDocument
}
