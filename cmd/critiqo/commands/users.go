package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utafrali/critiqo/internal/app"
	"github.com/utafrali/critiqo/internal/cli"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/query"
	"github.com/utafrali/critiqo/internal/users"
)

type userFlags struct {
	listFlags
	role   string
	status string
}

func (f *userFlags) register(cmd *cobra.Command) {
	f.listFlags.register(cmd, false)
	cmd.Flags().StringVar(&f.role, "role", "", "Only show this role, e.g. GUEST or ADMIN")
	cmd.Flags().StringVar(&f.status, "status", "", "Only show this account status, e.g. ACTIVE")
}

// userTable is a mounted user view with its directory and deletion flow.
type userTable struct {
	view *listview.Controller[domain.User]
	dir  *users.Directory
	flow *users.DeletionFlow
	loc  *query.Location
}

func (f *userFlags) open(cmd *cobra.Command, e *env) (*userTable, error) {
	loc, keys, err := f.location(cmd, "/users", map[string]string{
		users.FilterRole:   f.role,
		users.FilterStatus: f.status,
	})
	if err != nil {
		return nil, err
	}

	view, dir, flow := e.app.UserView(app.ViewOptions{Navigator: loc, FilterKeys: keys}, nil)
	t := &userTable{view: view, dir: dir, flow: flow, loc: loc}
	if err := view.Mount(e.ctx); err != nil {
		return t, err
	}
	return t, nil
}

func newUsersCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "List and delete portal users",
	}
	cmd.AddCommand(newUsersListCommand(s), newUsersDeleteCommand(s))
	return cmd
}

func newUsersListCommand(s *session) *cobra.Command {
	f := &userFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of users",
		Long: `Show one page of users. The whole collection is fetched once; search
over guest name and email, role and status filters and paging are applied
locally.`,
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
			if perr := e.out.Users(t.view.View(), t.loc.RawQuery()); perr != nil {
				return perr
			}
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func newUsersDeleteCommand(s *session) *cobra.Command {
	f := &userFlags{}
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Long: `Delete a user after confirmation. Admin accounts cannot be deleted.

The table is printed afterwards. When the deleted user was the only one on
the last page, the previous page is shown.

Examples:
  # Delete with confirmation
  critiqo users delete user-42

  # Delete without asking
  critiqo users delete user-42 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
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
			if err := t.show(e, id); err != nil {
				return err
			}

			prompt, err := t.flow.Select(id)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := cli.Confirm(s.rt.In, s.rt.Err, prompt.Question(), false)
				if err != nil {
					t.flow.Cancel()
					return err
				}
				if !ok {
					t.flow.Cancel()
					fmt.Fprintln(s.rt.Err, "Deletion cancelled")
					return nil
				}
			}

			if err := t.flow.Confirm(e.ctx); err != nil {
				return err
			}
			return e.out.Users(t.view.View(), t.loc.RawQuery())
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

// show moves the view to the page holding id when it is not on the
// current one. Unknown ids are left for Select to report.
func (t *userTable) show(e *env, id string) error {
	if _, ok := t.view.Find(id); ok {
		return nil
	}
	page, ok := t.dir.PageOf(id, t.view.State())
	if !ok {
		return nil
	}
	_, err := t.view.GoToPage(e.ctx, page)
	return err
}
