package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/shortsmith/internal/usecase"
)

func Main() {
	root := newRoot()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "shortsmith",
		Short:         "Find, rank and cut highlight shorts from long spoken-word videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		infoCmd(),
		audioCmd(),
		transcribeCmd(),
		analyzeCmd(),
		adjustCmd(),
		downloadCmd(),
		listCmd(),
		shortsCmd(),
		stateCmd(),
		recordCmd(),
		runCmd(),
		serveCmd(),
	)
	return root
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Fetch and store video metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.FetchMetadata(x.ctx, args[0])
			})
		},
	}
}

func audioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audio <url|video_id>",
		Short: "Download the audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, url := target(args[0])
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.ExtractAudio(x.ctx, usecase.AudioRequest{VideoID: id, URL: url})
			})
		},
	}
}

func transcribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe [url|video_id]",
		Short: "Transcribe the stored audio, or --audio for a local file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, _ := cmd.Flags().GetString("audio")
			var id, url string
			if len(args) == 1 {
				id, url = target(args[0])
			}
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.Transcribe(x.ctx, usecase.TranscribeRequest{AudioPath: audio, VideoID: id, URL: url})
			})
		},
	}
	cmd.Flags().String("audio", "", "Audio file to transcribe")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url|video_id>",
		Short: "Detect highlights over the stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reprocess, _ := cmd.Flags().GetBool("reprocess")
			id, url := target(args[0])
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.Analyze(x.ctx, usecase.AnalyzeRequest{VideoID: id, URL: url, Reprocess: reprocess})
			})
		},
	}
	cmd.Flags().Bool("reprocess", false, "Recompute even when an analysis is stored")
	return cmd
}

func adjustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <video_id> <index> <start> <end>",
		Short: "Set a highlight's interval in seconds",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			start, err := parseSeconds("start", args[2])
			if err != nil {
				return err
			}
			end, err := parseSeconds("end", args[3])
			if err != nil {
				return err
			}
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.AdjustInterval(x.ctx, args[0], index, start, end)
			})
		},
	}
}

func downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <video_id> <index>",
		Short: "Cut a highlight into a short",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.DownloadHighlight(x.ctx, args[0], index)
			})
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored videos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.ListVideos(x.ctx)
			})
		},
	}
}

func shortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shorts <video_id>",
		Short: "List downloaded shorts that still exist on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.ListDownloaded(x.ctx, args[0])
			})
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <url|video_id>",
		Short: "Show which stages are complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, url := target(args[0])
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.Status(x.ctx, url, id)
			})
		},
	}
}

func recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <video_id>",
		Short: "Print the stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.Record(x.ctx, args[0])
			})
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Fetch, extract audio, transcribe and analyze",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reprocess, _ := cmd.Flags().GetBool("reprocess")
			return execute(cmd, func(x *runCtx) (any, error) {
				return x.app.Service.Run(x.ctx, args[0], reprocess)
			})
		},
	}
	cmd.Flags().Bool("reprocess", false, "Recompute the analysis even when one is stored")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and uploaded files",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().String("addr", "", "Listen address (default HTTP_ADDR)")
	return cmd
}
