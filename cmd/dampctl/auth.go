package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wecr8/damp-backend/internal/auth"
	"github.com/wecr8/damp-backend/pkg/config"
)

const envPassword = "DAMP_CTL_PASSWORD"

func (c *cli) authClient() (*auth.Client, error) {
	var fb config.FirebaseConfig
	if err := c.loadSection(&fb); err != nil {
		return nil, err
	}
	provider, err := c.newProvider(fb)
	if err != nil {
		return nil, err
	}
	return auth.NewClient(provider), nil
}

// watch prints every auth state change for the lifetime of one command.
func (c *cli) watch(client *auth.Client) func() {
	return client.OnAuthStateChanged(func(u *auth.User) {
		if u == nil {
			fmt.Fprintln(c.out, "state: signed out")
			return
		}
		fmt.Fprintf(c.out, "state: signed in as %s (%s)\n", u.Email, u.UID)
	})
}

func (c *cli) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Exercise the identity provider with a local session",
	}

	var email, password, displayName string
	passwordFlag := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&email, "email", "", "account email")
		cmd.Flags().StringVar(&password, "password", "", "account password (or "+envPassword+")")
		_ = cmd.MarkFlagRequired("email")
	}
	resolvePassword := func() string {
		if password != "" {
			return password
		}
		return os.Getenv(envPassword)
	}

	signUp := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.authClient()
			if err != nil {
				return err
			}
			defer c.watch(client)()
			user, err := client.SignUp(cmd.Context(), email, resolvePassword())
			if err != nil {
				return err
			}
			if displayName != "" {
				if user, err = client.UpdateProfile(cmd.Context(), displayName); err != nil {
					return err
				}
			}
			return c.printJSON(user)
		},
	}
	passwordFlag(signUp)
	signUp.Flags().StringVar(&displayName, "display-name", "", "optional display name")

	signIn := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and print the ID token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.authClient()
			if err != nil {
				return err
			}
			defer c.watch(client)()
			if _, err := client.SignIn(cmd.Context(), email, resolvePassword()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, client.IDToken())
			client.SignOut()
			return nil
		},
	}
	passwordFlag(signIn)

	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Send a password reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.authClient()
			if err != nil {
				return err
			}
			if err := client.SendPasswordReset(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "reset email sent to %s\n", email)
			return nil
		},
	}
	reset.Flags().StringVar(&email, "email", "", "account email")
	_ = reset.MarkFlagRequired("email")

	cmd.AddCommand(signUp, signIn, reset)
	return cmd
}
