// Package cli implements the taskboard command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/credential"
)

var errNotLoggedIn = errors.New("not logged in, run `taskboard login` first")

// Options replace the interactive parts of the CLI. Zero values use the
// system keyring and a full screen bubbletea program.
type Options struct {
	OpenCredentials func(s Settings) (*credential.Store, error)
	RunBoard        func(m tea.Model) error
}

type app struct {
	opts     Options
	v        *viper.Viper
	settings Settings
	logger   zerolog.Logger
	creds    *credential.Store
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.OpenCredentials == nil {
		opts.OpenCredentials = func(s Settings) (*credential.Store, error) {
			return credential.Open(s.KeyringDir)
		}
	}
	if opts.RunBoard == nil {
		opts.RunBoard = func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		}
	}

	a := &app{
		opts:   opts,
		v:      viper.New(),
		logger: zerolog.Nop(),
	}

	var configPath string
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Manage your tasks on a kanban board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, configPath)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", DefaultConfigPath(), "config file")
	flags.String("server", defaultServer, "API server URL")
	flags.BoolP("verbose", "v", false, "log requests to stderr")
	flags.Bool("no-input", false, "never prompt, fail when a value is missing")
	_ = a.v.BindPFlag("server", flags.Lookup("server"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("no_input", flags.Lookup("no-input"))

	root.AddCommand(
		a.newLoginCommand(),
		a.newRegisterCommand(),
		a.newLogoutCommand(),
		a.newListCommand(),
		a.newAddCommand(),
		a.newEditCommand(),
		a.newMoveCommand(),
		a.newToggleCommand(),
		a.newRemoveCommand(),
		a.newBoardCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, configPath string) error {
	settings, err := loadSettings(a.v, configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	level := zerolog.WarnLevel
	if settings.Verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.Kitchen,
	}).
		Level(level).
		With().
		Timestamp().
		Logger()

	a.creds, err = a.opts.OpenCredentials(settings)
	if err != nil {
		return err
	}

	a.logger.Debug().
		Str("server", settings.Server).
		Str("config", configPath).
		Msg("loaded settings")
	return nil
}

// client returns an API client carrying the stored token.
func (a *app) client() (*client.Client, error) {
	token, err := a.creds.Token(a.settings.Server)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, errNotLoggedIn
		}
		return nil, err
	}
	return client.NewClient(a.settings.Server, token), nil
}

// apiError turns an expired or revoked token into a login hint.
func (a *app) apiError(err error) error {
	if client.IsUnauthorized(err) {
		a.logger.Debug().Err(err).Msg("token rejected")
		return errNotLoggedIn
	}
	return err
}

// Execute runs the CLI with the process arguments and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
