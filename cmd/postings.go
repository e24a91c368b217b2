package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var postingsCmd = &cobra.Command{
	Use:   "postings",
	Short: "List the postings of a job board or print one posting",
	Run: func(cmd *cobra.Command, _ []string) {
		runPostings(cmd)
	},
}

func init() {
	rootCmd.AddCommand(postingsCmd)

	postingsCmd.Flags().StringP("board", "b", "", "company job board URL")
	postingsCmd.Flags().String("id", "", "print the full description of this posting")
	postingsCmd.Flags().StringP("output", "o", outputText, "output format: text or json")
	postingsCmd.MarkFlagRequired("board")
}

func runPostings(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config, logger := setup()

	board, _ := cmd.Flags().GetString("board")
	id, _ := cmd.Flags().GetString("id")
	output, _ := cmd.Flags().GetString("output")

	d, err := buildDeps(ctx, config, logger, false)
	if err != nil {
		logger.Fatal("building dependencies", zap.Error(err))
	}

	if id != "" {
		description, err := d.service.Detail(ctx, board, id)
		if err != nil {
			logger.Fatal("fetching posting detail", zap.String("id", id), zap.Error(err))
		}
		fmt.Println(description)
		return
	}

	postings, err := d.service.Postings(ctx, board)
	if err != nil {
		logger.Fatal("fetching postings", zap.Error(err))
	}

	if output == outputJSON {
		if err := writeJSON(os.Stdout, postings); err != nil {
			logger.Fatal("writing postings", zap.Error(err))
		}
		return
	}

	renderPostings(os.Stdout, postings)
}
