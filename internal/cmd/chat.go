package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumeng-dev/clipinsight/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat <content-id> <message...>",
	Short: "Ask a question about an analyzed video",
	Long: `Chat streams an answer to a question about a video, grounded in the
stored comment analysis when one exists. The content id is the video id
printed by analyze.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		contentID := args[0]
		message := strings.Join(args[1:], " ")

		opts := pipeline.RunOptions{Fast: mustBool(cmd, "fast")}
		op := func(ctx context.Context, emit pipeline.Emitter) error {
			_, err := rt.runner.ChatReply(ctx, contentID, message, opts, emit)
			return err
		}

		if mustBool(cmd, "plain") {
			return plainRun(rt, op)
		}
		return streamRun(rt, "Chat", op)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("fast", false, "use the fast model")
	chatCmd.Flags().Bool("plain", false, "print plain output instead of the progress UI")
}
