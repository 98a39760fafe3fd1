package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/state"
	"github.com/flowdeck/flowdeck/internal/sync"
)

var (
	branchAt   string
	branchName string
)

var branchCmd = &cobra.Command{
	Use:   "branch <flow-id>",
	Short: "Branch a new flow off an existing one",
	Long: `Copies an existing flow into a new one linked back to its parent.
Every step gets a fresh identity; --at records which step of the parent
the branch forked from.`,
	Args: cobra.ExactArgs(1),
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

		src, err := client.FlowAggregate(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching source flow: %w", err)
		}

		b := bus.New()
		authState := state.NewAuthState(b, store)
		fs := state.NewFlowState(b, authState)
		list := state.NewFlowListState(b)
		tags := state.NewTagsState(b)

		ctl := sync.New(b, client, fs, list, tags, authState, clientWindows(cfg))
		ctl.Start()
		defer ctl.Stop()

		child := fs.Copy(src, branchAt)
		if branchName != "" {
			child.Flow.Name = branchName
		}

		created, err := ctl.CreateFlow(cmd.Context(), child)
		if err != nil {
			return err
		}

		fmt.Printf("Branched %q into %q (id: %s)\n", src.Flow.Name, created.Flow.Name, created.Flow.ID)
		return nil
	},
}

func init() {
	branchCmd.Flags().StringVar(&branchAt, "at", "", "Step id in the parent the branch forks from")
	branchCmd.Flags().StringVar(&branchName, "name", "", "Name for the new flow (default: parent name + \" (copy)\")")
	rootCmd.AddCommand(branchCmd)
}
