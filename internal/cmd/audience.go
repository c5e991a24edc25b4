package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lumeng-dev/clipinsight/internal/pipeline"
)

var audienceCmd = &cobra.Command{
	Use:   "audience <share-link>",
	Short: "Profile a video's audience",
	Long: `Audience streams an AI-generated audience profile for a video. It
reuses comments stored by a prior analyze run when available and only
collects from the provider otherwise.`,
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
			_, err := rt.runner.AnalyzeAudience(ctx, args[0], opts, emit)
			return err
		}

		if mustBool(cmd, "plain") {
			return plainRun(rt, op)
		}
		return streamRun(rt, "Audience analysis", op)
	},
}

func init() {
	rootCmd.AddCommand(audienceCmd)
	addRunFlags(audienceCmd)
}
