// Package cli implements the schedulectl commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
	"github.com/schedulebridge/schedule-bridge/internal/conf"
	"github.com/schedulebridge/schedule-bridge/internal/data"
	"github.com/schedulebridge/schedule-bridge/internal/infra/llm"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "schedulectl",
	Short: "Inspect and drive the schedule bridge from a terminal",
	Long:  "Extract schedule candidates from text, search and export the local calendar, or serve the calendar tools over MCP.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Calendar database path (default: $CALENDAR_DB_PATH or ~/.schedule-bridge/calendar.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

// core holds what the commands share; extraction is nil without an LLM key
type core struct {
	cfg        *conf.Config
	loc        *time.Location
	repos      *data.Repositories
	search     *usecase.SearchUsecase
	extraction *usecase.ExtractionUsecase
	fusion     *usecase.FusionUsecase
	lifecycle  *usecase.LifecycleUsecase
}

func openCore(needLLM bool) (*core, error) {
	cfg := conf.LoadFromEnv()
	if dbPath != "" {
		cfg.Calendar.DBPath = dbPath
	}
	if needLLM {
		if err := cfg.ValidateCore(); err != nil {
			return nil, err
		}
	}
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	opts := data.Options{
		CalendarDBPath:    cfg.Calendar.DBPath,
		Location:          loc,
		EventLinkFmt:      cfg.Calendar.LinkFmt,
		LedgerDBPath:      cfg.Ledger.DBPath,
		LedgerCapacity:    cfg.Ledger.Capacity,
		LLMProvider:       cfg.LLM.Provider,
		ConverterEndpoint: cfg.Converter.Endpoint,
		ConverterPoll:     cfg.Converter.PollInterval,
		ConverterMaxWait:  cfg.Converter.MaxWait,
		FetcherEnabled:    cfg.Fetcher.Enabled,
		FetcherTimeout:    cfg.Fetcher.Timeout,
		FetcherMaxChars:   cfg.Fetcher.MaxChars,
	}
	if cfg.LLM.APIKey != "" {
		opts.LLMClient = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	}
	repos, err := data.NewRepositories(opts)
	if err != nil {
		return nil, err
	}

	c := &core{
		cfg:       cfg,
		loc:       loc,
		repos:     repos,
		search:    usecase.NewSearchUsecase(repos.Calendar),
		fusion:    usecase.NewFusionUsecase(repos.Converter, repos.Fetcher),
		lifecycle: usecase.NewLifecycleUsecase(repos.Calendar, loc),
	}
	if repos.LLM != nil {
		c.extraction = usecase.NewExtractionUsecase(repos.LLM, cfg.ToExtractionConfig(loc))
	}
	return c, nil
}

func (c *core) Close() {
	c.repos.Close()
}

func (c *core) now() time.Time {
	return time.Now().In(c.loc)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
