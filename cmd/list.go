package cmd

import (
	"fmt"

	"toolshed/internal/tool"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

type listOptions struct {
	kinds     []string
	scopes    []string
	filter    string
	effective bool
}

// toolFilter narrows a resolved tool list for display. Resolution always
// runs over every scope so effective flags stay correct.
type toolFilter struct {
	scopes    map[tool.Scope]bool
	pattern   glob.Glob
	effective bool
}

func newToolFilter(scopes []string, pattern string, effective bool) (*toolFilter, error) {
	f := &toolFilter{effective: effective}
	if len(scopes) > 0 {
		f.scopes = make(map[tool.Scope]bool, len(scopes))
		for _, s := range scopes {
			sc, err := tool.ParseScope(s)
			if err != nil {
				return nil, err
			}
			f.scopes[sc] = true
		}
	}
	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
		}
		f.pattern = g
	}
	return f, nil
}

func (f *toolFilter) match(t tool.Tool) bool {
	if f.scopes != nil && !f.scopes[t.Scope] {
		return false
	}
	if f.effective && !t.Effective {
		return false
	}
	if f.pattern != nil && !f.pattern.Match(t.Name) && !f.pattern.Match(tool.CanonicalKey(t)) {
		return false
	}
	return true
}

func (f *toolFilter) apply(tools []tool.Tool) []tool.Tool {
	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

func parseKinds(names []string) ([]tool.Kind, error) {
	kinds := make([]tool.Kind, 0, len(names))
	for _, n := range names {
		k, err := tool.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func newListCmd(root *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tools across every configured scope",
		Long: `List every skill, command, prompt, server and hook found in the configured
scopes. Tools defined in several scopes appear once per scope; the definition
that wins under the precedence order is marked in the EFF column.

Stores that cannot be read are reported on stderr and skipped.

Examples:
  toolshed list
  toolshed list --kind skill --kind server
  toolshed list --scope project --filter 'git*'
  toolshed list --effective -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(opts.kinds)
			if err != nil {
				return err
			}
			filter, err := newToolFilter(opts.scopes, opts.filter, opts.effective)
			if err != nil {
				return err
			}
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}

			snap, err := a.inventory.Load(cmd.Context(), kinds...)
			if err != nil {
				return err
			}
			a.printer.PrintConfigurationErrors(a.stderr, snap.Errors)
			return a.printer.PrintTools(filter.apply(snap.Tools))
		},
	}

	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "only list these kinds (skill, command, prompt, server, hook)")
	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "only list tools in these scopes")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "glob matched against the tool name or canonical key")
	cmd.Flags().BoolVar(&opts.effective, "effective", false, "only list the winning definition of each tool")
	return cmd
}
