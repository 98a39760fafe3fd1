package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/config"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List your favourite tags",
	Long: `Lists the signed-in user's favourite tags, one per line, with the
slug used when filtering flows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, err := openSession()
		if err != nil {
			return err
		}
		client := api.New(cfg.Client.BaseURL, store)

		page, err := client.UserTags(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing tags: %w", err)
		}

		if len(page.Rows) == 0 {
			fmt.Println("No favourite tags yet.")
			return nil
		}
		for _, tag := range page.Rows {
			fmt.Printf("%s\t%s\n", tag.Name, tag.Slug)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
