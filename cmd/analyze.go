package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cheyenne-cl/firegeo/internal/pipeline"
	"github.com/cheyenne-cl/firegeo/internal/stream"
)

var (
	analyzeURL  string
	analyzeUser string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full brand analysis for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		company, err := env.Scraper.Scrape(ctx, analyzeURL)
		if err != nil {
			return eris.Wrap(err, "scrape company")
		}
		zap.L().Info("company scraped",
			zap.String("name", company.Name),
			zap.String("industry", company.Industry),
		)

		run, err := env.Store.CreateRun(ctx, analyzeUser, *company)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		progress := stream.NewProgress(logEvent)
		result, err := env.Pipeline.Run(ctx, pipeline.RunInput{
			RunID:   run.ID,
			UserID:  analyzeUser,
			Company: *company,
		}, progress)
		if err != nil {
			if storeErr := env.Store.SetRunError(ctx, run.ID, err.Error()); storeErr != nil {
				zap.L().Warn("run error persistence failed", zap.Error(storeErr))
			}
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("analysis complete",
			zap.String("run_id", run.ID),
			zap.Int("responses", len(result.Responses)),
			zap.Int("competitors", len(result.Competitors)),
			zap.Float64("overall_score", result.Scores.OverallScore),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// logEvent mirrors streamed progress frames onto the logger so the CLI
// shows the same stages the SSE endpoint would.
func logEvent(ev stream.Event) error {
	zap.L().Info("progress",
		zap.String("type", string(ev.Type)),
		zap.String("stage", string(ev.Stage)),
	)
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "company website URL (required)")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "cli", "user id to record the run under")
	_ = analyzeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(analyzeCmd)
}
