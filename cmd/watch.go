package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the posting cache of configured boards warm",
	Run: func(cmd *cobra.Command, _ []string) {
		runWatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceP("board", "b", nil, "board URL to watch, overrides watch.boards (repeatable)")
	watchCmd.Flags().Bool("once", false, "warm every board once and exit")
}

func runWatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup()

	boards := config.Watch.Boards
	if flagged, _ := cmd.Flags().GetStringSlice("board"); len(flagged) > 0 {
		boards = flagged
	}
	if len(boards) == 0 {
		logger.Fatal("no boards to watch", zap.String("hint", "set watch.boards or pass --board"))
	}

	d, err := buildDeps(ctx, config, logger, false)
	if err != nil {
		logger.Fatal("building dependencies", zap.Error(err))
	}

	for _, board := range boards {
		if err := d.service.Validate(board); err != nil {
			logger.Fatal("unsupported board", zap.String("board", board), zap.Error(err))
		}
	}

	warmBoards(ctx, d.service, boards, logger)

	if once, _ := cmd.Flags().GetBool("once"); once {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(config.Watch.Schedule, func() {
		warmBoards(ctx, d.service, boards, logger)
	}); err != nil {
		logger.Fatal("parsing watch schedule", zap.String("schedule", config.Watch.Schedule), zap.Error(err))
	}

	c.Start()
	logger.Info("watching boards", zap.Int("count", len(boards)), zap.String("schedule", config.Watch.Schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("stopped")
}

type warmer interface {
	Warm(ctx context.Context, boardURL string) (int, error)
}

var _ warmer = (*pipeline.Service)(nil)

// warmBoards refreshes each board in turn. A failing board does not stop the others.
func warmBoards(ctx context.Context, w warmer, boards []string, logger *zap.Logger) int {
	warmed := 0
	for _, board := range boards {
		if ctx.Err() != nil {
			break
		}

		n, err := w.Warm(ctx, board)
		if err != nil {
			logger.Warn("warming board failed", zap.String("board", board), zap.Error(err))
			continue
		}

		warmed++
		logger.Info("board warmed", zap.String("board", board), zap.Int("postings", n))
	}
	return warmed
}
