package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

func (a *app) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Look up accounts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := a.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				users, err := api.ListUsers(cmd.Context())
				if err != nil {
					return fmt.Errorf("list users: %s", client.MessageOf(err))
				}
				printUsers(cmd, users)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Show one account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				api, err := a.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				u, err := api.GetUser(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("get user %d: %s", id, client.MessageOf(err))
				}
				printUsers(cmd, []domain.User{*u})
				return nil
			},
		},
	)
	return cmd
}

// signedIn restores the persisted session and returns a client that sends
// its credential token. Without one the client stays anonymous.
func (a *app) signedIn(ctx context.Context) (*client.Client, error) {
	sess, err := a.sessions.Restore(ctx)
	if err != nil {
		return nil, errors.New(domain.MessageOf(err))
	}
	return a.api.WithToken(sess.Token()), nil
}

func printUsers(cmd *cobra.Command, users []domain.User) {
	w := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	fmt.Fprintf(w, "%-6s  %-24s  %-32s  %s\n", "ID", "NAME", "EMAIL", "ROLE")
	fmt.Fprintf(w, "%-6s  %-24s  %-32s  %s\n", "--", "----", "-----", "----")
	for _, u := range users {
		fmt.Fprintf(w, "%-6d  %-24s  %-32s  %s\n", u.ID, sanitize.Line(u.Name, 24), sanitize.Line(u.Email, 32), sanitize.Line(u.Role, 12))
	}
}
