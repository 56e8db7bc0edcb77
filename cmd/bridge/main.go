package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"

	"github.com/schedulebridge/schedule-bridge/internal/api"
	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
	"github.com/schedulebridge/schedule-bridge/internal/conf"
	"github.com/schedulebridge/schedule-bridge/internal/data"
	"github.com/schedulebridge/schedule-bridge/internal/infra/feishu"
	"github.com/schedulebridge/schedule-bridge/internal/infra/llm"
	"github.com/schedulebridge/schedule-bridge/internal/server"
	"github.com/schedulebridge/schedule-bridge/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	loc, err := cfg.Calendar.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	// Initialize repository layer
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	repos, err := data.NewRepositories(data.Options{
		CalendarDBPath:    cfg.Calendar.DBPath,
		Location:          loc,
		EventLinkFmt:      cfg.Calendar.LinkFmt,
		LedgerDBPath:      cfg.Ledger.DBPath,
		LedgerCapacity:    cfg.Ledger.Capacity,
		LLMClient:         llmClient,
		LLMProvider:       cfg.LLM.Provider,
		ConverterEndpoint: cfg.Converter.Endpoint,
		ConverterPoll:     cfg.Converter.PollInterval,
		ConverterMaxWait:  cfg.Converter.MaxWait,
		FetcherEnabled:    cfg.Fetcher.Enabled,
		FetcherTimeout:    cfg.Fetcher.Timeout,
		FetcherMaxChars:   cfg.Fetcher.MaxChars,
	})
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	fmt.Printf("[Bridge] Calendar DB: %s\n", cfg.Calendar.DBPath)
	fmt.Printf("[Bridge] Models: %v\n", cfg.LLM.Models)

	// Initialize usecase layer
	uc := service.Usecases{
		Dedup:      usecase.NewDedupUsecase(repos.Ledger, cfg.Ledger.Window),
		Fusion:     usecase.NewFusionUsecase(repos.Converter, repos.Fetcher),
		Extraction: usecase.NewExtractionUsecase(repos.LLM, cfg.ToExtractionConfig(loc)),
		Search:     usecase.NewSearchUsecase(repos.Calendar),
		Confirm:    usecase.NewConfirmUsecase(),
		Lifecycle:  usecase.NewLifecycleUsecase(repos.Calendar, loc),
	}

	// Initialize service layer
	assistant := service.NewAssistantService(uc, loc)

	var routes []api.Route
	if cfg.Slack.Enabled() {
		assistant.RegisterMessenger(server.SourceSlack, data.NewSlackRepo(slack.New(cfg.Slack.BotToken)))
		slackSrv := server.NewSlackServer(cfg.Slack.SigningSecret, cfg.Slack.BotUserID, assistant)
		routes = append(routes, slackSrv.Register)
		fmt.Println("[Bridge] Slack channel enabled")
	}

	var feishuSrv *server.FeishuServer
	if cfg.Feishu.Enabled() {
		feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
		assistant.RegisterMessenger(server.SourceFeishu, data.NewFeishuRepo(feishuClient))
		feishuSrv = server.NewFeishuServer(feishuClient, assistant)
		fmt.Println("[Bridge] Feishu channel enabled")
	}

	// HTTP server: health, ICS feed and Slack endpoints
	apiServer := api.NewServer(repos.Calendar, cfg.Server.Addr, routes...)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Bridge] API server error: %v\n", err)
		}
	}()
	fmt.Printf("[Bridge] HTTP server listening on %s\n", cfg.Server.Addr)

	cronRunner := service.NewCronRunner(repos.Ledger, cfg.Housekeeping.Spec, loc)
	if err := cronRunner.Start(); err != nil {
		log.Fatalf("Failed to start housekeeping: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if feishuSrv != nil {
		go func() {
			if err := feishuSrv.Start(ctx); err != nil {
				fmt.Printf("[Bridge] Feishu server error: %v\n", err)
			}
		}()
	}

	fmt.Println("Starting Schedule Bridge...")
	<-ctx.Done()

	fmt.Println("\nShutting down...")
	if feishuSrv != nil {
		feishuSrv.Stop()
	}
	cronRunner.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		fmt.Printf("[Bridge] API server shutdown error: %v\n", err)
	}
}
