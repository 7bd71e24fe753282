package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naveenspark/storefront/internal/tui"
)

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Browse the catalog and manage your account interactively",
		Annotations: map[string]string{interactive: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

func (a *app) runTUI(cmd *cobra.Command) error {
	opts := tui.Options{
		API:      a.api,
		Sessions: a.sessions,
		PageSize: a.cfg.Catalog.PageSize,
		Version:  a.version,
		Logger:   a.logger,
	}
	if a.provider != nil {
		opts.OAuth = a.provider
	}
	if a.releases != nil {
		opts.Releases = a.releases
	}

	a.program = tea.NewProgram(tui.NewApp(opts),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	defer func() { a.program = nil }()

	if _, err := a.program.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
