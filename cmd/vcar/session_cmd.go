package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Log in, log out and inspect the current session",
	}

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("VCAR_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			ctx := cmd.Context()
			res, err := a.api.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.session.SetTokens(res.AccessToken, res.RefreshToken); err != nil {
				return err
			}
			a.session.SetUser(res.User)
			if err := a.session.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", res.User.DisplayName, res.User.Email)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "Account email")
	login.Flags().StringVar(&password, "password", "", "Account password (defaults to $VCAR_PASSWORD)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.session.RequireUser()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "User:  %s (%s)\n", user.DisplayName, user.ID)
			fmt.Fprintf(a.out, "Email: %s\n", user.Email)
			fmt.Fprintf(a.out, "Role:  %s\n", a.session.Role())
			return nil
		},
	}

	cmd.AddCommand(login, logout, show)
	return cmd
}
