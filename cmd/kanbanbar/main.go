package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanbanbar/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// CLI flags
	configFlag  string
	projectFlag string
	logLevel    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kanbanbar",
		Short: "Kanban board for GitHub Projects v2",
		Long: `kanbanbar is a kanban board for GitHub Projects v2.

Run 'kanbanbar' without arguments to open the interactive board.

Authentication:
  1. OAuth: Run 'kanbanbar login' (token kept in the system keychain)
  2. GitHub CLI: Run 'gh auth login'
  3. Environment variable: Set GITHUB_TOKEN

The token must have read/write access to projects.`,
		SilenceUsage: true,
		RunE:         runBoard,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.kanbanbar/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project by ID, number (#3) or title. Skips the project picker.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProjectsCmd(),
		newBoardCmd(),
		newMoveCmd(),
		newCreateCmd(),
		newEditCmd(),
		newAskCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func runBoard(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the interactive board needs a terminal; try 'kanbanbar board'")
	}

	// Logs go to a file so they don't draw over the alt screen.
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	app := tui.NewAppModel(a.engine, a.copilot, cmd.Context(), a.projectRef())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
