package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/internal/session"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

func (a *app) newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
		useOAuth      bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with the identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if useOAuth {
				if a.provider == nil {
					return errors.New("identity provider sign-in is not configured (set oauth.issuer and oauth.client_id)")
				}
				if _, err := a.provider.Login(ctx); err != nil {
					return fmt.Errorf("login: %w", err)
				}
				sess, err := a.sessions.LoginWithDelegatedSession(ctx)
				if err != nil {
					return fmt.Errorf("login: %s", domain.MessageOf(err))
				}
				printSignedIn(cmd.OutOrStdout(), sess)
				return nil
			}

			var err error
			if email == "" {
				if email, err = a.readLine("Email: "); err != nil {
					return err
				}
			}
			label := "Password: "
			if passwordStdin {
				label = ""
			}
			password, err := a.readLine(label)
			if err != nil {
				return err
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			sess, err := a.sessions.LoginWithCredentials(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %s", domain.MessageOf(err))
			}
			printSignedIn(cmd.OutOrStdout(), sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin without a prompt")
	cmd.Flags().BoolVar(&useOAuth, "oauth", false, "Sign in through the identity provider in a browser")
	cmd.MarkFlagsMutuallyExclusive("oauth", "email")
	cmd.MarkFlagsMutuallyExclusive("oauth", "password-stdin")
	return cmd
}

func printSignedIn(w io.Writer, sess session.Session) {
	if sess.Identity == nil {
		return
	}
	fmt.Fprintf(w, "Signed in as %s <%s>\n", sanitize.Line(sess.Identity.Name, 60), sanitize.Line(sess.Identity.Email, 80))
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// Restore first so a delegated session is also signed out upstream.
			if _, err := a.sessions.Restore(ctx); err != nil {
				a.logger.Debug().Err(err).Msg("restore before logout")
			}
			a.sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.sessions.Restore(cmd.Context())
			if err != nil {
				return errors.New(domain.MessageOf(err))
			}
			if !sess.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			printIdentity(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func printIdentity(w io.Writer, sess session.Session) {
	id := sess.Identity
	fmt.Fprintf(w, "%-8s %s\n", "ID", sanitize.Line(id.ID, 40))
	fmt.Fprintf(w, "%-8s %s\n", "Name", sanitize.Line(id.Name, 60))
	fmt.Fprintf(w, "%-8s %s\n", "Email", sanitize.Line(id.Email, 80))
	fmt.Fprintf(w, "%-8s %s\n", "Role", sanitize.Line(id.Role, 20))
	if id.AvatarURL != "" {
		fmt.Fprintf(w, "%-8s %s\n", "Avatar", sanitize.Line(id.AvatarURL, 120))
	}
	fmt.Fprintf(w, "%-8s %s\n", "Method", string(sess.Method))
}

func (a *app) newSignupCmd() *cobra.Command {
	var (
		name, email, avatar string
		noLogin             bool
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account (reads the password from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			avatarURL, err := domain.ParseImage(avatar)
			if err != nil {
				return fmt.Errorf("avatar: %s", domain.MessageOf(err))
			}
			password, err := a.readLine("Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is required")
			}

			available, err := a.api.IsEmailAvailable(ctx, email)
			if err != nil {
				return fmt.Errorf("check email: %s", client.MessageOf(err))
			}
			if !available {
				return fmt.Errorf("%s is already registered", email)
			}

			user, err := a.api.CreateUser(ctx, client.CreateUserRequest{
				Name:     name,
				Email:    email,
				Password: password,
				Avatar:   avatarURL,
			})
			if err != nil {
				return fmt.Errorf("signup: %s", client.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d\n", user.ID)

			if noLogin {
				return nil
			}
			sess, err := a.sessions.LoginWithCredentials(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %s", domain.MessageOf(err))
			}
			printSignedIn(cmd.OutOrStdout(), sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&avatar, "avatar", domain.DefaultAvatar, "Avatar image URL")
	cmd.Flags().BoolVar(&noLogin, "no-login", false, "Do not sign in after creating the account")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the signed-in profile",
	}
	cmd.AddCommand(a.newProfileUpdateCmd())
	return cmd
}

func (a *app) newProfileUpdateCmd() *cobra.Command {
	var (
		name, email, avatar string
		password            bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name, email, password or avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var upd domain.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("email") {
				upd.Email = &email
			}
			if flags.Changed("avatar") {
				u, err := domain.ParseImage(avatar)
				if err != nil {
					return fmt.Errorf("avatar: %s", domain.MessageOf(err))
				}
				upd.Avatar = &u
			}
			if password {
				pw, err := a.readLine("New password: ")
				if err != nil {
					return err
				}
				upd.Password = &pw
			}

			if _, err := a.sessions.Restore(ctx); err != nil {
				return errors.New(domain.MessageOf(err))
			}
			sess, err := a.sessions.UpdateProfile(ctx, upd)
			if err != nil {
				return errors.New(domain.MessageOf(err))
			}
			printIdentity(cmd.OutOrStdout(), sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&avatar, "avatar", "", "New avatar image URL")
	cmd.Flags().BoolVar(&password, "password", false, "Read a new password from stdin")
	return cmd
}
