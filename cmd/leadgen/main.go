package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/octobees/lead-campaign/internal/analyzer"
	"github.com/octobees/lead-campaign/internal/auth"
	"github.com/octobees/lead-campaign/internal/campaign"
	"github.com/octobees/lead-campaign/internal/config"
	"github.com/octobees/lead-campaign/internal/content"
	"github.com/octobees/lead-campaign/internal/database"
	"github.com/octobees/lead-campaign/internal/handler"
	"github.com/octobees/lead-campaign/internal/mailer"
	middlewarepkg "github.com/octobees/lead-campaign/internal/middleware"
	"github.com/octobees/lead-campaign/internal/places"
	"github.com/octobees/lead-campaign/internal/repository"
	"github.com/octobees/lead-campaign/internal/router"
	"github.com/octobees/lead-campaign/internal/service"
)

var (
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "leadgen",
	Short: "Lead generation and email outreach campaign engine",
	Long: `leadgen discovers local businesses via Google Places, scores their
automation potential, generates personalised German outreach emails and
dispatches them under a daily cap. Campaign state lives in PostgreSQL and
is served to the dashboard by the embedded API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		logCfg := zap.NewProductionConfig()
		if verbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = logCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run one full discovery-to-dispatch campaign pass",
	RunE:  runCampaign,
}

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Send follow-ups to unanswered leads",
	RunE:  runFollowup,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print campaign aggregates as JSON",
	RunE:  runStats,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE:  runServe,
}

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage dashboard operator accounts",
}

var (
	operatorEmail    string
	operatorPassword string
	operatorRole     string
)

var operatorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a dashboard operator account",
	RunE:  runOperatorAdd,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	operatorAddCmd.Flags().StringVar(&operatorEmail, "email", "", "operator email")
	operatorAddCmd.Flags().StringVar(&operatorPassword, "password", "", "operator password")
	operatorAddCmd.Flags().StringVar(&operatorRole, "role", "viewer", "operator role (admin or viewer)")
	_ = operatorAddCmd.MarkFlagRequired("email")
	_ = operatorAddCmd.MarkFlagRequired("password")

	operatorCmd.AddCommand(operatorAddCmd)
	rootCmd.AddCommand(campaignCmd, followupCmd, statsCmd, serveCmd, operatorCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func connect(ctx context.Context) (*repository.PGXLeadsRepository, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return repository.NewPGXLeadsRepository(pool), pool.Close, nil
}

func newGenerator() (*content.Generator, error) {
	return content.NewGenerator(content.Settings{
		APIKey:        cfg.OpenAIAPIKey,
		Model:         cfg.OpenAIModel,
		BaseURL:       cfg.OpenAIBaseURL,
		SenderName:    cfg.SenderName,
		SenderCompany: cfg.SenderCompany,
	})
}

func newMailer() (*mailer.Mailer, error) {
	return mailer.New(mailer.Settings{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		User:          cfg.SMTPUser,
		Password:      cfg.SMTPPassword,
		SenderName:    cfg.SenderName,
		SenderCompany: cfg.SenderCompany,
	})
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func runCampaign(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateCampaign(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, closePool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	generator, err := newGenerator()
	if err != nil {
		return err
	}
	dispatcher, err := newMailer()
	if err != nil {
		return err
	}

	runner := campaign.NewRunner(campaign.Deps{
		Discovery:  places.NewClient(nil, cfg.GoogleAPIKey),
		Analyzer:   analyzer.New(logger),
		Generator:  generator,
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	}, campaign.RunnerConfig{
		Search: places.SearchParams{
			Query:    cfg.SearchQuery,
			Location: cfg.SearchLocation,
			Radius:   cfg.SearchRadius,
		},
		MaxEmailsPerDay: cfg.MaxEmailsPerDay,
		SendDelay:       cfg.SendDelay,
	})

	summary, err := runner.Run(ctx)
	if summary != nil {
		if printErr := printJSON(summary); printErr != nil {
			logger.Warn("print summary failed", zap.Error(printErr))
		}
	}
	return err
}

func runFollowup(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateFollowup(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, closePool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	generator, err := newGenerator()
	if err != nil {
		return err
	}
	dispatcher, err := newMailer()
	if err != nil {
		return err
	}

	runner := campaign.NewFollowupRunner(generator, store, dispatcher, nil, logger, cfg.SendDelay)
	summary, err := runner.Run(ctx)
	if summary != nil {
		if printErr := printJSON(summary); printErr != nil {
			logger.Warn("print summary failed", zap.Error(printErr))
		}
	}
	return err
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, closePool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runOperatorAdd(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(repository.NewPGXOperatorsRepository(pool), tokens)

	operator, err := authService.CreateOperator(ctx, operatorEmail, operatorPassword, operatorRole)
	if err != nil {
		return err
	}

	logger.Info("operator created",
		zap.String("id", operator.ID.String()),
		zap.String("email", operator.Email),
		zap.String("role", operator.Role))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	leadsService := service.NewLeadsService(repository.NewPGXLeadsRepository(pool))
	authService := service.NewAuthService(repository.NewPGXOperatorsRepository(pool), tokens)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, tokens, router.Handlers{
		Auth:  handler.NewAuthHandler(authService),
		Leads: handler.NewLeadsHandler(leadsService),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()
	logger.Info("dashboard api listening", zap.String("port", cfg.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
