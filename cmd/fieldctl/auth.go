package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	signinUsername string
	signinPassword string
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and keep the session for later commands",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		password := signinPassword
		if password == "" {
			password = os.Getenv("FIELDCTL_PASSWORD")
		}
		if signinUsername == "" || password == "" {
			return errors.New("--username and --password (or FIELDCTL_PASSWORD) are required")
		}

		session, err := a.client.SignIn(ctx, signinUsername, password)
		if err != nil {
			return err
		}
		if err := a.saveSession(a.client.Session()); err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("signed in as %s (%s)", session.User.Username, session.User.Role)))
		fmt.Println(mutedStyle.Render("session expires " + stamp(session.ExpiresAt)))
		return nil
	}),
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "End the session",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		if err := a.client.SignOut(ctx); err != nil {
			a.logger.Debug("server signout failed", zap.Error(err))
		}
		if err := a.clearSession(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("signed out"))
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		me, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Println(renderFields(me.FirstName+" "+me.LastName, [][2]string{
			{"Username", me.Username},
			{"Email", me.Email},
			{"Role", string(me.Role)},
			{"Branch", me.BranchName},
		}))
		return nil
	}),
}

func init() {
	signinCmd.Flags().StringVarP(&signinUsername, "username", "u", "", "Username or email")
	signinCmd.Flags().StringVarP(&signinPassword, "password", "p", "", "Password")
	rootCmd.AddCommand(signinCmd, signoutCmd, whoamiCmd)
}
