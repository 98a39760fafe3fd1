package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/progress"
	"github.com/flowdeck/flowdeck/internal/site"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export flows as a static HTML site",
	Long: `Fetches every flow visible to the signed-in user and writes a static
site: an index grouped by day, one page per flow, and a search index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		outDir := cfg.Export.OutputDir
		if exportOut != "" {
			outDir = exportOut
		}

		sessionPath, err := auth.DefaultPath()
		if err != nil {
			return err
		}
		client := api.New(cfg.Client.BaseURL, auth.NewStore(sessionPath))

		summaries, err := client.Flows(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing flows: %w", err)
		}
		if len(summaries) == 0 {
			return fmt.Errorf("no flows to export")
		}

		reporter := progress.NewReporter()
		reporter.Start(len(summaries))

		var aggs []flow.Aggregate
		for i, s := range summaries {
			agg, err := client.FlowAggregate(cmd.Context(), s.Flow.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: skipping flow %s: %v\n", s.Flow.ID, err)
				continue
			}
			aggs = append(aggs, agg)
			reporter.Update(i+1, s.Flow.Name)
		}
		reporter.Finish()

		gen := site.NewGenerator(outDir, cfg.Export.ProjectName)
		pages, err := gen.Generate(aggs)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d flow page(s) to %s\n", pages, outDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output directory (overrides config)")
	rootCmd.AddCommand(exportCmd)
}
