package cli

import (
	"context"
	"fmt"

	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/spf13/cobra"
)

var (
	authUsername string
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the server",
	Long: `Sign in and remember the session for later commands.

The password is prompted for without echo unless --password is given.

Examples:
  docchat login
  docchat login --username alice
  docchat --api-url https://rag.example.com login -u alice`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authUsername, "username", "u", "", "Username")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "Password (prompted if omitted)")
	}
	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "Email address")
}

func runLogin(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		username, password, err := askCredentials()
		if err != nil {
			return err
		}

		state, err := a.Session.Login(ctx, username, password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s on %s\n", state.User.Username, a.Config.APIURL)
		return nil
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		in := session.RegisterInput{Username: authUsername, Email: authEmail}
		var err error
		if in.Username == "" {
			if in.Username, err = promptLine("Username: "); err != nil {
				return err
			}
		}
		if in.Email == "" {
			if in.Email, err = promptLine("Email: "); err != nil {
				return err
			}
		}
		if authPassword != "" {
			in.Password, in.Confirm = authPassword, authPassword
		} else {
			if in.Password, err = promptPassword("Password: "); err != nil {
				return err
			}
			if in.Confirm, err = promptPassword("Confirm password: "); err != nil {
				return err
			}
		}

		state, err := a.Session.Register(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("Account created. Signed in as %s\n", state.User.Username)
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		a.Session.Logout()
		fmt.Println("Signed out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		user := a.Session.State().User
		fmt.Printf("Username: %s\n", user.Username)
		if user.Email != "" {
			fmt.Printf("Email:    %s\n", user.Email)
		}
		if !user.ID.IsZero() {
			fmt.Printf("ID:       %s\n", user.ID)
		}
		fmt.Printf("Server:   %s\n", a.Config.APIURL)
		return nil
	})
}

func askCredentials() (string, string, error) {
	username, password := authUsername, authPassword
	var err error
	if username == "" {
		if username, err = promptLine("Username: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptPassword("Password: "); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}
