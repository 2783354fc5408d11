package cli

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/taskboard/internal/client"
)

type credentialsFlags struct {
	email    string
	password string
}

func (f *credentialsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password")
}

// resolveCredentials prompts for whatever was not given as a flag.
func (a *app) resolveCredentials(f *credentialsFlags) error {
	if f.email != "" && f.password != "" {
		return nil
	}
	if a.settings.NoInput {
		return errors.New("--email and --password are required with --no-input")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&f.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(validatePassword),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	return nil
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("enter a valid email")
	}
	return nil
}

func validatePassword(s string) error {
	if len(s) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

type authFunc func(c *client.Client, ctx context.Context, email, password string) (*client.AuthResponse, error)

func (a *app) newAuthCommand(use, short, done string, fn authFunc) *cobra.Command {
	var f credentialsFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.resolveCredentials(&f); err != nil {
				return err
			}

			c := client.NewClient(a.settings.Server, "")
			resp, err := fn(c, cmd.Context(), f.email, f.password)
			if err != nil {
				a.logger.Debug().
					Err(err).
					Str("email", f.email).
					Msg(use + " failed")
				return err
			}

			if err = a.creds.SetToken(a.settings.Server, resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", done, resp.User.Email)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) newLoginCommand() *cobra.Command {
	return a.newAuthCommand("login", "Log in and remember the token", "Logged in", (*client.Client).Login)
}

func (a *app) newRegisterCommand() *cobra.Command {
	return a.newAuthCommand("register", "Create an account and log in", "Registered", (*client.Client).Register)
}

func (a *app) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.creds.DeleteToken(a.settings.Server); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
