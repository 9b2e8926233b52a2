package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/gateway"
	"github.com/MarcoPoloResearchLab/snippyvault/internal/session"
	"github.com/MarcoPoloResearchLab/snippyvault/internal/snippets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const untitled = "(untitled)"

func (a *application) newClient(logger *zap.Logger) (*gateway.Client, error) {
	return gateway.NewClient(gateway.Config{
		BaseURL: a.config.APIBaseURL,
		Timeout: a.config.APITimeout,
		Logger:  logger,
	})
}

// openCollection loads the logged-in user's snippets.
func (a *application) openCollection(ctx context.Context) (*snippets.Collection, error) {
	current, err := session.Load(a.config.SessionPath)
	if errors.Is(err, session.ErrNotLoggedIn) {
		return nil, fmt.Errorf("not logged in: run `snippyvault login <username>` first")
	}
	if err != nil {
		return nil, err
	}

	logger := a.clientLogger()
	if current.APIBaseURL != "" && current.APIBaseURL != a.config.APIBaseURL {
		logger.Warn("session was created against a different vault",
			zap.String("session_api", current.APIBaseURL),
			zap.String("configured_api", a.config.APIBaseURL))
	}

	client, err := a.newClient(logger)
	if err != nil {
		return nil, err
	}
	collection, err := snippets.NewCollection(snippets.CollectionConfig{
		Gateway: client.WithUsername(current.Username),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if err := collection.Load(ctx); err != nil {
		return nil, err
	}
	return collection, nil
}

func newLoginCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the vault, creating the account on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.newClient(app.clientLogger())
			if err != nil {
				return err
			}
			username := strings.TrimSpace(args[0])
			message, err := client.Login(cmd.Context(), username)
			if err != nil {
				return err
			}
			if err := session.Save(app.config.SessionPath, session.Session{
				Username:   username,
				APIBaseURL: app.config.APIBaseURL,
				LoggedInAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			fmt.Fprintln(app.out, message)
			return nil
		},
	}
}

func newLogoutCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Clear(app.config.SessionPath); err != nil {
				return err
			}
			fmt.Fprintln(app.out, "logged out")
			return nil
		},
	}
}

type filterFlags struct {
	tags   []string
	search string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Show snippets carrying any of these tags (repeatable)")
	cmd.Flags().StringVar(&f.search, "search", "", "Show snippets whose title, content or tags contain the term")
}

func (f *filterFlags) apply(collection *snippets.Collection) {
	collection.SetSelectedTags(f.tags)
	collection.SetSearchTerm(f.search)
}

func newListCommand(app *application) *cobra.Command {
	filter := &filterFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets in their saved order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			filter.apply(collection)
			return writeSnippetTable(app.out, collection.Visible())
		},
	}
	filter.register(cmd)
	return cmd
}

func newTagsCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			for _, tag := range collection.Tags() {
				fmt.Fprintln(app.out, tag)
			}
			return nil
		},
	}
}

type draftFlags struct {
	title   string
	content string
	tags    []string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Snippet title")
	cmd.Flags().StringVar(&f.content, "content", "", "Snippet content, or - to read it from stdin")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Snippet tag (repeatable)")
}

func (a *application) resolveContent(raw string) (string, error) {
	if raw != "-" {
		return raw, nil
	}
	data, err := io.ReadAll(a.in)
	if err != nil {
		return "", fmt.Errorf("read content from stdin: %w", err)
	}
	return string(data), nil
}

func newAddCommand(app *application) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a snippet at the end of the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := app.resolveContent(flags.content)
			if err != nil {
				return err
			}
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			added, err := collection.Add(cmd.Context(), snippets.Draft{
				Title:   flags.title,
				Content: content,
				Tags:    flags.tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, added.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCommand(app *application) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title, content or tags of a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			existing, ok := collection.Get(args[0])
			if !ok {
				return fmt.Errorf("snippet %s not found", args[0])
			}

			draft := snippets.Draft{
				Title:   existing.Title,
				Content: existing.Content,
				Tags:    existing.Tags,
			}
			if cmd.Flags().Changed("title") {
				draft.Title = flags.title
			}
			if cmd.Flags().Changed("content") {
				content, err := app.resolveContent(flags.content)
				if err != nil {
					return err
				}
				draft.Content = content
			}
			if cmd.Flags().Changed("tag") {
				draft.Tags = flags.tags
			}

			if err := collection.Update(cmd.Context(), existing.ID, draft); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "updated %s\n", existing.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			if err := collection.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "deleted %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
}

func newMoveCommand(app *application) *cobra.Command {
	filter := &filterFlags{}
	var position int
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a snippet to a position within the filtered list",
		Long: "Move a snippet to a 1-based position within the list as filtered by --tag and --search. " +
			"Snippets hidden by the filter keep their relative order after the visible ones.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			filter.apply(collection)

			before := snippets.IDs(collection.Visible())
			from := indexOf(before, strings.TrimSpace(args[0]))
			if from < 0 {
				return fmt.Errorf("snippet %s is not in the filtered list", args[0])
			}
			after, err := snippets.MoveID(before, from, position-1)
			if err != nil {
				return err
			}
			if err := collection.Reorder(cmd.Context(), snippets.DragResult{Before: before, After: after}); err != nil {
				return err
			}
			return writeSnippetTable(app.out, collection.Visible())
		},
	}
	filter.register(cmd)
	cmd.Flags().IntVar(&position, "to", 0, "Target position, starting at 1")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newShowCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the raw content of a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := app.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			snippet, ok := collection.Get(args[0])
			if !ok {
				return fmt.Errorf("snippet %s not found", args[0])
			}
			fmt.Fprint(app.out, snippet.Content)
			if !strings.HasSuffix(snippet.Content, "\n") {
				fmt.Fprintln(app.out)
			}
			return nil
		},
	}
}

func writeSnippetTable(out io.Writer, items []snippets.Snippet) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tID\tTITLE\tTAGS")
	for index, item := range items {
		title := item.Title
		if title == "" {
			title = untitled
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", index+1, item.ID, title, strings.Join(item.Tags, ", "))
	}
	return writer.Flush()
}

func indexOf(ids []string, id string) int {
	for index, candidate := range ids {
		if candidate == id {
			return index
		}
	}
	return -1
}
