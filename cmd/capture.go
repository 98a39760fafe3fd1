package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/capture"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/state"
	"github.com/flowdeck/flowdeck/internal/sync"
)

var (
	captureName    string
	captureTitle   string
	captureNote    string
	captureGrep    string
	captureInclude []string
	captureExclude []string
	captureMax     int
)

var captureCmd = &cobra.Command{
	Use:   "capture [<file:line>...]",
	Short: "Create a flow from code locations",
	Long: `Captures code locations with surrounding context and publishes them as
a new flow. Each file:line argument becomes one match step, in argument
order, after an opening note step. With --grep, the tree is scanned for
the pattern and every hit becomes a match step; --include and --exclude
narrow the scan with glob patterns (** supported).`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && captureGrep == "" {
			return fmt.Errorf("nothing to capture: pass file:line arguments or --grep")
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		git := capture.GitInfoFor(cwd)
		root := git.RepoRoot
		if root == "" {
			root = cwd
		}

		store, err := openSession()
		if err != nil {
			return err
		}

		b := bus.New()
		authState := state.NewAuthState(b, store)
		fs := state.NewFlowState(b, authState)
		list := state.NewFlowListState(b)
		tags := state.NewTagsState(b)

		client := api.New(cfg.Client.BaseURL, store)
		ctl := sync.New(b, client, fs, list, tags, authState, clientWindows(cfg))
		ctl.Start()
		defer ctl.Stop()

		fs.Reset()
		meta := fs.Flow()
		if captureName != "" {
			meta.Name = captureName
		}
		meta.GitRepoRoot = root
		meta.GitBranch = git.Branch
		meta.GitCommitSHA = git.CommitSHA
		fs.UpdateFlow(meta)

		if captureTitle != "" || captureNote != "" {
			opening := fs.Matches()[0]
			opening.Step = &flow.StepContent{Title: captureTitle, Body: captureNote}
			fs.UpdateMatch(opening)
		}

		after := 0
		for _, ref := range args {
			loc, err := capture.ParseLocation(ref)
			if err != nil {
				return err
			}
			grep, err := capture.Snip(root, loc, cfg.Capture.ContextLines)
			if err != nil {
				return err
			}
			fs.InsertMatchAfter(after, grep)
			after++
		}

		if captureGrep != "" {
			hits, err := grepSteps(cfg, root, captureGrep, captureInclude, captureExclude, captureMax)
			if err != nil {
				return err
			}
			if len(hits) == 0 && len(args) == 0 {
				return fmt.Errorf("no matches for %q", captureGrep)
			}
			for _, grep := range hits {
				fs.InsertMatchAfter(after, grep)
				after++
			}
		}

		created, err := ctl.CreateFlow(cmd.Context(), fs.Aggregate())
		if err != nil {
			return err
		}

		fmt.Printf("Created flow %q with %d step(s) (id: %s)\n",
			created.Flow.Name, len(created.Matches), created.Flow.ID)
		return nil
	},
}

// grepSteps scans the tree under root for pattern, one match step per
// hit. Include/exclude globs fall back to the configured capture filters.
func grepSteps(cfg *config.Config, root, pattern string, include, exclude []string, max int) ([]flow.GrepMatch, error) {
	if len(include) == 0 {
		include = cfg.Capture.Include
	}
	if len(exclude) == 0 {
		exclude = cfg.Capture.Exclude
	}
	return capture.Scan(capture.ScanConfig{
		RootDir:      root,
		Pattern:      pattern,
		Include:      include,
		Exclude:      exclude,
		ContextLines: cfg.Capture.ContextLines,
		MaxMatches:   max,
	})
}

func init() {
	captureCmd.Flags().StringVar(&captureName, "name", "", "Flow name")
	captureCmd.Flags().StringVar(&captureTitle, "title", "", "Title of the opening note step")
	captureCmd.Flags().StringVar(&captureNote, "note", "", "Body of the opening note step")
	captureCmd.Flags().StringVar(&captureGrep, "grep", "", "Scan the tree for this pattern; every hit becomes a match step")
	captureCmd.Flags().StringSliceVar(&captureInclude, "include", nil, "Glob patterns to scan (default: configured capture.include)")
	captureCmd.Flags().StringSliceVar(&captureExclude, "exclude", nil, "Glob patterns to skip (default: configured capture.exclude)")
	captureCmd.Flags().IntVar(&captureMax, "max-matches", 0, "Stop scanning after this many hits (0 = unlimited)")
	rootCmd.AddCommand(captureCmd)
}
