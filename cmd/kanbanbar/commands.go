package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/h0rv/kanbanbar/internal/auth"
	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with GitHub in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			authn, err := a.authenticator()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Opening GitHub in your browser...")
			user, err := authn.Login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Login)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			// No client ID is needed to drop the token.
			if err := a.secrets.Delete(); err != nil && !errors.Is(err, auth.ErrNotFound) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.tokens.GetToken()
			if err != nil {
				return err
			}
			user, err := a.client.FetchViewer(cmd.Context(), token)
			if err != nil {
				return err
			}
			if user.Name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Login, user.Name)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), user.Login)
			}
			return nil
		},
	}
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Refresh(cmd.Context()); err != nil && !a.engine.Store().Loaded() {
				return err
			}
			return printProjects(cmd.OutOrStdout(), a.engine.Store().CurrentProjects())
		},
	}
}

func newBoardCmd() *cobra.Command {
	var search, filter string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the board's columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.openProject(cmd.Context())
			if err != nil {
				return err
			}
			b := a.engine.Board()
			if cmd.Flags().Changed("filter") {
				f, err := board.ParseFilter(filter)
				if err != nil {
					return err
				}
				b.SetFilter(f)
			}
			b.SetSearch(search)
			return printBoard(cmd.OutOrStdout(), p, b.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show cards whose title contains this text")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter: all, assigned, created, mentioned")
	return cmd
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <item-id> <status>",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := a.engine.MoveCard(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	var in engine.TaskInput
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Add a draft issue to the project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.openProject(cmd.Context())
			if err != nil {
				return err
			}
			in.ProjectID = p.ID
			in.Title = strings.Join(args, " ")

			itemID, err := a.engine.CreateTask(cmd.Context(), in)
			var partial *engine.PartialCreateError
			if errors.As(err, &partial) {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s, but setting its %s failed\n", partial.ItemID, partial.Step)
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", itemID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Body, "body", "b", "", "Description (markdown)")
	cmd.Flags().StringVar(&in.Status, "status", "", "Column to place the card in")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "Priority option, e.g. High")
	return cmd
}

func newEditCmd() *cobra.Command {
	var title, body string
	cmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Change a draft issue's title or body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Refresh(cmd.Context()); err != nil {
				return err
			}
			item := a.engine.Store().FindProjectContaining(args[0]).Item(args[0])
			if item == nil || item.Content == nil {
				return fmt.Errorf("item %s not found", args[0])
			}
			if !cmd.Flags().Changed("title") {
				title = item.Content.Title
			}
			if !cmd.Flags().Changed("body") {
				body = item.Content.Body
			}
			if err := a.engine.UpdateTask(cmd.Context(), args[0], title, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "New description (markdown)")
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the task copilot, e.g. \"create a high priority bug for login\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.openProject(cmd.Context()); err != nil {
				return err
			}
			reply, err := a.copilot.Process(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), renderReply(reply.Content))
			return err
		},
	}
}

// openProject loads every project and selects the one named by --project (or the config)
// on the board. Without a reference there must be exactly one project.
func (a *app) openProject(ctx context.Context) (*domain.Project, error) {
	if err := a.engine.Refresh(ctx); err != nil && !a.engine.Store().Loaded() {
		return nil, err
	}

	var p *domain.Project
	if ref := a.projectRef(); ref != "" {
		found, err := a.engine.Store().FindProject(ref)
		if err != nil {
			return nil, err
		}
		p = found
	} else {
		projects := a.engine.Store().CurrentProjects()
		switch len(projects) {
		case 0:
			return nil, errors.New("no projects found for this account")
		case 1:
			p = &projects[0]
		default:
			return nil, fmt.Errorf("%d projects found; pick one with --project", len(projects))
		}
	}

	a.engine.Board().SetProject(p)
	return p, nil
}

func printProjects(w io.Writer, projects []domain.Project) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tTITLE\tITEMS\tID")
	for _, p := range projects {
		fmt.Fprintf(tw, "#%d\t%s\t%d\t%s\n", p.Number, p.Title, len(p.Items), p.ID)
	}
	return tw.Flush()
}

func printBoard(w io.Writer, p *domain.Project, columns []board.Column) error {
	fmt.Fprintf(w, "#%d %s\n", p.Number, p.Title)
	if len(columns) == 0 {
		_, err := fmt.Fprintln(w, "\nThis project has no Status field.")
		return err
	}
	for _, col := range columns {
		fmt.Fprintf(w, "\n%s (%d)\n", col.Name, len(col.Items))
		for _, it := range col.Items {
			fmt.Fprintf(w, "  %s  %s\n", it.ID, cardLine(it))
		}
	}
	return nil
}

// cardLine is the one-line form of a card: title, then number or draft marker and priority.
func cardLine(it domain.Item) string {
	title := it.Title()
	if title == "" {
		title = "Untitled"
	}
	var tags []string
	if c := it.Content; c != nil {
		switch {
		case c.Kind == domain.ContentTypeDraftIssue:
			tags = append(tags, "draft")
		case c.Number > 0:
			tags = append(tags, fmt.Sprintf("#%d", c.Number))
		}
	}
	if pr := it.Priority(); pr != "" {
		tags = append(tags, pr)
	}
	if len(tags) == 0 {
		return title
	}
	return title + " [" + strings.Join(tags, ", ") + "]"
}

// renderReply renders markdown replies when stdout is a terminal.
func renderReply(content string) string {
	if !strings.HasPrefix(content, "# ") || !term.IsTerminal(int(os.Stdout.Fd())) {
		return content
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
