package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/utafrali/critiqo/internal/app"
	"github.com/utafrali/critiqo/internal/cli"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/moderation"
	"github.com/utafrali/critiqo/internal/query"
)

type reviewFlags struct {
	listFlags
	status string
}

func (f *reviewFlags) register(cmd *cobra.Command) {
	f.listFlags.register(cmd, true)
	cmd.Flags().StringVar(&f.status, "status", "all", "Table to open: all, draft, published or unpublished")
}

func (f *reviewFlags) partition() (moderation.Partition, error) {
	if f.status == "" || strings.EqualFold(f.status, "all") {
		return moderation.Partition{}, nil
	}
	status, err := domain.ParseReviewStatus(f.status)
	if err != nil {
		return moderation.Partition{}, err
	}
	return moderation.PartitionOf(status), nil
}

// reviewTable is a mounted review view and its moderator.
type reviewTable struct {
	view *listview.Controller[domain.Review]
	mod  *moderation.Moderator
	loc  *query.Location
}

func (f *reviewFlags) open(cmd *cobra.Command, e *env) (*reviewTable, error) {
	p, err := f.partition()
	if err != nil {
		return nil, err
	}
	loc, keys, err := f.location(cmd, "/reviews/"+p.Name(), nil)
	if err != nil {
		return nil, err
	}

	view, mod := e.app.ReviewView(p, app.ViewOptions{Navigator: loc, FilterKeys: keys})
	t := &reviewTable{view: view, mod: mod, loc: loc}
	if err := view.Mount(e.ctx); err != nil {
		return t, err
	}
	return t, nil
}

func newReviewsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reviews",
		Aliases: []string{"review"},
		Short:   "List and moderate reviews",
	}
	cmd.AddCommand(
		newReviewsListCommand(s),
		newReviewsStatusCommand(s),
		newReviewsSetStatusCommand(s, "publish", domain.ReviewStatusPublished),
		newReviewsSetStatusCommand(s, "unpublish", domain.ReviewStatusUnpublished),
		newReviewsPremiumCommand(s),
	)
	return cmd
}

func newReviewsListCommand(s *session) *cobra.Command {
	f := &reviewFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of reviews",
		Long: `Show one page of reviews with its page window and the canonical
admin panel query string.

Examples:
  # Second page of unpublished reviews
  critiqo reviews list --status unpublished --page 2

  # Reopen a table from an admin panel URL
  critiqo reviews list --status published --url "https://admin.critiqo.io/reviews?page=3&search=pizza"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			t, err := f.open(cmd, e)
			if t == nil {
				return err
			}
			defer t.view.Close()
			if perr := e.out.Reviews(t.view.View(), t.loc.RawQuery()); perr != nil {
				return perr
			}
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func newReviewsStatusCommand(s *session) *cobra.Command {
	f := &reviewFlags{}
	cmd := &cobra.Command{
		Use:   "status <id> <DRAFT|PUBLISHED|UNPUBLISHED>",
		Short: "Change the status of a review",
		Long: `Change the status of a review. The table selected by --status and the
page flags is loaded first; when the review leaves that table it is removed
from the page and the count drops by one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := domain.ParseReviewStatus(args[1])
			if err != nil {
				return err
			}
			return f.changeStatus(cmd, s, args[0], target)
		},
	}
	f.register(cmd)
	return cmd
}

func newReviewsSetStatusCommand(s *session, use string, target domain.ReviewStatus) *cobra.Command {
	f := &reviewFlags{}
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: "Set a review to " + string(target),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.changeStatus(cmd, s, args[0], target)
		},
	}
	f.register(cmd)
	return cmd
}

func (f *reviewFlags) changeStatus(cmd *cobra.Command, s *session, id string, target domain.ReviewStatus) error {
	e, done, err := s.open(cmd)
	if err != nil {
		return err
	}
	defer done()

	t, err := f.open(cmd, e)
	if t != nil {
		defer t.view.Close()
	}
	if err != nil {
		return err
	}

	out, err := t.mod.ChangeStatus(e.ctx, id, target)
	if err != nil {
		return err
	}
	if !out.Cached {
		return e.out.StatusChanged(cli.StatusChange{ID: id, Status: out.Review.Status})
	}
	return e.out.Review(out.Review)
}

func newReviewsPremiumCommand(s *session) *cobra.Command {
	f := &reviewFlags{}
	cmd := &cobra.Command{
		Use:   "premium <id>",
		Short: "Toggle premium on a review",
		Long: `Toggle premium on a review. Enabling keeps the current price or applies
the default price; disabling sends no price. The review must be on the page
selected by --status and the page flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			t, err := f.open(cmd, e)
			if t != nil {
				defer t.view.Close()
			}
			if err != nil {
				return err
			}

			if _, err := t.mod.TogglePremium(e.ctx, args[0]); err != nil {
				return err
			}
			review, _ := t.view.Find(args[0])
			return e.out.Review(review)
		},
	}
	f.register(cmd)
	return cmd
}
