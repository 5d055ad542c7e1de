package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolshed/internal/watch"
	"toolshed/pkg/logging"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	kinds    []string
	scopes   []string
	filter   string
	debounce time.Duration
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "List tools and re-list them whenever a scope changes",
		Long: `Print the tool list, then print it again every time a settings file,
server file or tool directory in any scope changes. Bursts of changes are
collapsed into one refresh. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(opts.kinds)
			if err != nil {
				return err
			}
			filter, err := newToolFilter(opts.scopes, opts.filter, false)
			if err != nil {
				return err
			}
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			render := func() error {
				snap, err := a.inventory.Load(ctx, kinds...)
				if err != nil {
					return err
				}
				a.printer.PrintConfigurationErrors(a.stderr, snap.Errors)
				return a.printer.PrintTools(filter.apply(snap.Tools))
			}
			if err := render(); err != nil {
				return err
			}

			w := watch.New(a.layout.WatchPaths(), opts.debounce)
			changes := make(chan watch.Event, 16)
			if err := w.Start(ctx, changes); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer func() {
				if err := w.Stop(); err != nil {
					logging.Warn("CLI", "Stopping watcher: %v", err)
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-changes:
					logging.Debug("CLI", "Refreshing after %s of %s", ev.Operation, ev.Path)
					if !a.printer.Structured() {
						fmt.Fprintf(cmd.OutOrStdout(), "\n[%s] %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.Operation, ev.Path)
					}
					if err := render(); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "only list these kinds")
	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "only list tools in these scopes")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "glob matched against the tool name or canonical key")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "quiet period before a burst of changes triggers a refresh")
	return cmd
}
