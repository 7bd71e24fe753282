// Package cli implements the storefront command line.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/naveenspark/storefront/internal/config"
	"github.com/naveenspark/storefront/internal/kvstore"
	"github.com/naveenspark/storefront/internal/logging"
	"github.com/naveenspark/storefront/internal/oauth"
	"github.com/naveenspark/storefront/internal/session"
	"github.com/naveenspark/storefront/internal/tui"
	"github.com/naveenspark/storefront/pkg/client"
)

const logFileName = "storefront.log"

// interactive marks commands that own the terminal; they log to a file.
const interactive = "interactive"

// app holds what every command shares once PersistentPreRunE has run.
type app struct {
	version string

	flagConfig    string
	flagAPIURL    string
	flagLogLevel  string
	flagLogFormat string

	cfg      *config.Config
	logger   zerolog.Logger
	store    kvstore.Store
	api      *client.Client
	releases *client.Client // nil when update checks are off
	provider *oauth.Provider
	sessions *session.Store
	closers  []io.Closer

	in      *bufio.Reader
	errOut  io.Writer
	program *tea.Program
}

// NewRootCmd creates the root cobra command for the storefront CLI.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront catalog and account client",
		Long: "storefront browses the product catalog, manages products and categories,\n" +
			"and signs in to storefront accounts. Run without a subcommand for the TUI.",
		Annotations:        map[string]string{interactive: "true"},
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.teardown() },
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flagConfig, "config", "", "Config file (default ~/.storefront/config.yaml)")
	root.PersistentFlags().StringVar(&a.flagAPIURL, "api-url", "", "API base URL (or STOREFRONT_API_URL env)")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.flagLogFormat, "log-format", "", "Log format (json, console)")

	root.AddCommand(
		a.newTUICmd(),
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newWhoamiCmd(),
		a.newSignupCmd(),
		a.newProfileCmd(),
		a.newProductsCmd(),
		a.newCategoriesCmd(),
		a.newUsersCmd(),
		a.newVersionCmd(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flagConfig)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.URL = a.flagAPIURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.errOut = cmd.ErrOrStderr()
	a.in = bufio.NewReader(cmd.InOrStdin())

	if err := os.MkdirAll(cfg.State.Dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if cmd.Annotations[interactive] == "true" {
		logger, closer, err := logging.NewFile(cfg.Log.Level, cfg.Log.Format, filepath.Join(cfg.State.Dir, logFileName))
		if err != nil {
			return err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, a.errOut)
	}

	store, err := kvstore.Open(cfg.State.Backend, cfg.State.Dir)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store)

	a.api = client.New(cfg.API.URL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		client.WithLogger(a.logger),
	)

	if cfg.UpdatesEnabled() {
		a.releases = client.New(cfg.Updates.URL,
			client.WithTimeout(cfg.API.Timeout),
			client.WithLogger(a.logger),
		)
	}

	// A nil *oauth.Provider must not become a non-nil session.Delegated.
	var delegated session.Delegated
	if cfg.OAuthEnabled() {
		a.provider = oauth.New(oauth.Config{
			Issuer:        cfg.OAuth.Issuer,
			ClientID:      cfg.OAuth.ClientID,
			ClientSecret:  cfg.OAuth.ClientSecret,
			Scopes:        cfg.OAuth.Scopes,
			RevocationURL: cfg.OAuth.RevocationURL,
		}, store, a.logger, oauth.WithPrompt(a.prompt))
		delegated = a.provider
	}
	a.sessions = session.New(a.api, delegated, session.NewKVPersister(store), a.logger)

	a.logger.Debug().Str("command", cmd.CommandPath()).Str("api", cfg.API.URL).Str("backend", cfg.State.Backend).Msg("ready")
	return nil
}

func (a *app) teardown() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// prompt shows the identity provider URL when no browser could be opened.
func (a *app) prompt(authURL string) {
	if a.program != nil {
		a.program.Send(tui.AuthURLMsg(authURL))
		return
	}
	fmt.Fprintf(a.errOut, "Open this URL to sign in:\n  %s\n", authURL)
}

// readLine prompts on stderr and reads one line from stdin.
func (a *app) readLine(label string) (string, error) {
	if label != "" {
		fmt.Fprint(a.errOut, label)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "storefront %s\n", a.version)
			if !check {
				return nil
			}
			if a.releases == nil {
				fmt.Fprintln(w, "Update checks are off.")
				return nil
			}
			rel, err := a.releases.LatestRelease(cmd.Context())
			if err != nil {
				return fmt.Errorf("check for updates: %s", client.MessageOf(err))
			}
			if !rel.NewerThan(a.version) {
				fmt.Fprintln(w, "Up to date.")
				return nil
			}
			fmt.Fprintf(w, "%s is available", rel.Version())
			if rel.URL != "" {
				fmt.Fprintf(w, ": %s", rel.URL)
			}
			fmt.Fprintln(w)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	return cmd
}
