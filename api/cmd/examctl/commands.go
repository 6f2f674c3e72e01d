package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"exam-solver/api/internal/app"
	"exam-solver/api/internal/compact"
	"exam-solver/api/internal/config"
	"exam-solver/api/internal/exam"
	"exam-solver/api/internal/ocr"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Segment an exam page into questions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := documentText(cmd.Context(), args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), exam.Parse(text))
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact [file]",
	Short: "Deduplicate and truncate a document to a character budget",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readSource(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		out, st := compact.CompactWithStats(text, viper.GetInt("budget"))
		if viper.GetBool("stats") {
			return output(cmd.OutOrStdout(), map[string]any{"stats": st, "text": out})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve [file]",
	Short: "Solve a page synchronously with an in-memory job store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text, err := documentText(ctx, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg := config.Load()
		if b := viper.GetIntSlice("budgets"); len(b) > 0 {
			cfg.Budgets = b
		}
		jobs := store.NewMemory()
		a, err := app.NewWithStore(cfg, jobs)
		if err != nil {
			return err
		}
		gen, err := a.LLMs.Get(viper.GetString("llm"))
		if err != nil {
			return err
		}

		id := uuid.NewString()
		if _, err := a.Runner.Submit(ctx, solve.Request{
			JobID:     id,
			Text:      text,
			Prefix:    viper.GetString("prefix"),
			Language:  exam.DetectLanguage(text),
			Generator: gen,
		}); err != nil {
			return err
		}
		if err := a.Runner.Wait(ctx); err != nil {
			return err
		}
		job, err := jobs.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := output(cmd.OutOrStdout(), job); err != nil {
			return err
		}
		if job.Status != store.StatusDone {
			return fmt.Errorf("job %s: %s", id, job.Message)
		}
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show a job from the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.DB.Close()

		job, err := repo.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), job)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark stale running jobs as abandoned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.DB.Close()

		staleAfter := viper.GetDuration("stale-after")
		if err := solve.CheckStaleAfter(staleAfter, app.RunnerOptions(config.Load())); err != nil {
			return err
		}
		n, err := solve.NewSweeper(repo, staleAfter).Sweep(ctx)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), map[string]int{"closed": n})
	},
}

func init() {
	parseCmd.Flags().String("image", "", "OCR this image instead of reading text")
	parseCmd.Flags().String("ocr", "", "OCR engine (yandex, gemini)")
	parseCmd.Flags().String("lang", "", "language hint for OCR, e.g. ko,en")

	compactCmd.Flags().IntP("budget", "b", 6000, "character budget")
	compactCmd.Flags().Bool("stats", false, "print compaction statistics")

	solveCmd.Flags().String("image", "", "OCR this image instead of reading text")
	solveCmd.Flags().String("ocr", "", "OCR engine (yandex, gemini)")
	solveCmd.Flags().String("lang", "", "language hint for OCR, e.g. ko,en")
	solveCmd.Flags().String("llm", "", "generator name (default from LLM_DEFAULT)")
	solveCmd.Flags().String("prefix", "", "text the answer must start with")
	solveCmd.Flags().IntSlice("budgets", nil, "attempt budgets, e.g. 6000,3000")

	for _, c := range []*cobra.Command{jobCmd, sweepCmd} {
		c.Flags().String("sqlite", "exam-solver.db", "SQLite path when no Postgres DSN is set")
	}
	sweepCmd.Flags().Duration("stale-after", 10*time.Minute, "age after which a running job is abandoned")
}

// documentText returns the page text, running OCR when --image is given.
func documentText(ctx context.Context, args []string, stdin io.Reader) (string, error) {
	path := viper.GetString("image")
	if path == "" {
		return readSource(args, stdin)
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	eng, err := app.Recognizers(config.Load()).Get(viper.GetString("ocr"))
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return eng.Recognize(ctx, img, ocr.LanguageCodes(viper.GetString("lang")))
}

func openStore(ctx context.Context) (*store.JobRepo, error) {
	return store.Open(ctx, store.ResolveDSN(), viper.GetString("sqlite"))
}
