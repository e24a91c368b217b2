package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/matching"
)

const promptExit = "exit"

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the postings of a job board against a resume",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "path to a plain text resume")
	matchCmd.Flags().StringP("desired", "w", "", "free text description of the job you want")
	matchCmd.Flags().StringP("board", "b", "", "company job board URL (Greenhouse, Lever or Workday)")
	matchCmd.Flags().BoolP("interactive", "i", false, "ask for missing inputs and browse the results")
	matchCmd.Flags().StringP("output", "o", outputText, "output format: text or json")
}

func runMatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config, logger := setup()

	interactive, _ := cmd.Flags().GetBool("interactive")
	output, _ := cmd.Flags().GetString("output")
	resumePath, _ := cmd.Flags().GetString("resume")
	desired, _ := cmd.Flags().GetString("desired")
	board, _ := cmd.Flags().GetString("board")

	if interactive {
		var err error
		if resumePath, err = ask("Resume file", resumePath, true); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if board, err = ask("Job board URL", board, true); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if desired, err = ask("Desired job", desired, false); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	if resumePath == "" || board == "" {
		logger.Fatal("--resume and --board are required")
	}

	resume, err := os.ReadFile(resumePath)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	d, err := buildDeps(ctx, config, logger, true)
	if err != nil {
		logger.Fatal("building dependencies", zap.Error(err))
	}

	if err := d.service.Validate(board); err != nil {
		logger.Fatal("unsupported board", zap.Error(err))
	}

	profile, err := d.extractor.ExtractProfile(ctx, string(resume))
	if err != nil {
		logger.Fatal("extracting resume profile", zap.Error(err))
	}
	if profile.Empty() {
		logger.Warn("resume profile is empty, scores will rely on the desired job only")
	}

	logger.Info("resume profile extracted",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("keywords", len(profile.Keywords)),
	)

	results, err := d.service.Recommend(ctx, profile, desired, board)
	if err != nil {
		logger.Fatal("recommending", zap.Error(err))
	}

	if output == outputJSON {
		if err := writeJSON(os.Stdout, map[string]any{"results": results}); err != nil {
			logger.Fatal("writing results", zap.Error(err))
		}
		return
	}

	renderResults(os.Stdout, results)

	if interactive && len(results) > 0 {
		if err := browse(results); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func ask(label, current string, required bool) (string, error) {
	if current != "" {
		return current, nil
	}

	p := promptui.Prompt{Label: label}
	if required {
		p.Validate = func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("value is required")
			}
			return nil
		}
	}

	value, err := p.Run()
	return strings.TrimSpace(value), err
}

// browse lets the user open results one by one until exit is chosen.
func browse(results []matching.MatchResult) error {
	items := make([]string, 0, len(results)+1)
	for _, r := range results {
		items = append(items, resultLabel(r))
	}
	items = append(items, promptExit)

	for {
		selector := promptui.Select{
			Label: "Show details",
			Items: items,
			Size:  len(items),
		}

		idx, choice, err := selector.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}
		if choice == promptExit {
			return nil
		}

		fmt.Println()
		renderDetail(os.Stdout, results[idx])
		fmt.Println()
	}
}
