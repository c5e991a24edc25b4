package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lumeng-dev/clipinsight/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <share-link>",
	Short: "Analyze the comments of a video",
	Long: `Analyze resolves a share link, collects the video's comments and
streams an AI-generated comment analysis. Results are cached for a week;
use --refresh to force a fresh run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		opts := pipeline.RunOptions{
			Fast:    mustBool(cmd, "fast"),
			Refresh: mustBool(cmd, "refresh"),
		}
		op := func(ctx context.Context, emit pipeline.Emitter) error {
			_, err := rt.runner.AnalyzeComments(ctx, args[0], opts, emit)
			return err
		}

		if mustBool(cmd, "plain") {
			return plainRun(rt, op)
		}
		return streamRun(rt, "Comment analysis", op)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addRunFlags(analyzeCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("fast", false, "use the fast model")
	cmd.Flags().Bool("refresh", false, "bypass the cached result")
	cmd.Flags().Bool("plain", false, "print plain output instead of the progress UI")
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
