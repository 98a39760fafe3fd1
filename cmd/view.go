package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/config"
)

var viewCmd = &cobra.Command{
	Use:   "view <flow-id>",
	Short: "Print a flow's rendered markdown",
	Long: `Fetches the read-only preview of a flow and prints its markdown to
stdout. Works signed out for public flows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		sessionPath, err := auth.DefaultPath()
		if err != nil {
			return err
		}
		client := api.New(cfg.Client.BaseURL, auth.NewStore(sessionPath))

		summary, err := client.FlowPreview(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching flow: %w", err)
		}

		if summary.Markdown == "" {
			fmt.Printf("# %s\n", summary.Name)
			if summary.Description != "" {
				fmt.Printf("\n%s\n", summary.Description)
			}
			return nil
		}
		fmt.Println(summary.Markdown)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
