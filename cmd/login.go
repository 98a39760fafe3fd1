package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/config"
)

var loginRegister bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to a flowdeck server",
	Long: `Signs in with email and password and stores the session token in
~/.flowdeck/session.json. Use --register to create an account first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		email, err := ask("Email", nil)
		if err != nil {
			return err
		}

		var name string
		if loginRegister {
			name, err = ask("Name", nil)
			if err != nil {
				return err
			}
		}

		password, err := askSecret("Password")
		if err != nil {
			return err
		}

		sessionPath, err := auth.DefaultPath()
		if err != nil {
			return err
		}
		store := auth.NewStore(sessionPath)
		client := api.New(cfg.Client.BaseURL, store)

		var sess api.Session
		if loginRegister {
			sess, err = client.Register(cmd.Context(), email, name, password)
		} else {
			sess, err = client.Login(cmd.Context(), email, password)
		}
		if err != nil {
			return err
		}

		if err := store.Save(sess.APIToken, sess.User); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("Signed in as %s (%s)\n", sess.User.Name, sess.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionPath, err := auth.DefaultPath()
		if err != nil {
			return err
		}
		if err := auth.NewStore(sessionPath).Clear(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

// ask displays a prompt and returns the trimmed input.
func ask(label string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{Label: label, Validate: validate}
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}

// askSecret prompts with masked input.
func askSecret(label string) (string, error) {
	p := promptui.Prompt{Label: label, Mask: '*'}
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}

func init() {
	loginCmd.Flags().BoolVar(&loginRegister, "register", false, "Create a new account")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
