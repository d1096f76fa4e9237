package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"perfeval/internal/app/server"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/db"
	"perfeval/internal/platform/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("perfeval failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.Config) {
	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "perfeval",
		Short:         "Personnel evaluation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and, with Redis, the job scheduler",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Consume background jobs from Redis",
			RunE:  runWorker,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the configured admin user if missing",
			RunE:  runSeed,
		},
		&cobra.Command{
			Use:   "import <file.yaml>",
			Short: "Create an evaluation from a YAML document",
			Args:  cobra.ExactArgs(1),
			RunE:  runImport,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := server.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return app.Serve(ctx)
	})
	if app.Jobs.Distributed() {
		g.Go(func() error {
			return app.Jobs.RunScheduler(ctx)
		})
	} else {
		slog.Info("REDIS_ADDR not set, jobs run inline and nothing is scheduled")
	}
	return g.Wait()
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return jobs.ErrNoRedis
	}
	app, err := server.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Jobs.RunWorker(cmd.Context())
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return db.Migrate(cfg.DatabaseURL)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := db.Connect(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	return db.Seed(cmd.Context(), pool, cfg)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := evaluation.ParseImport(f)
	if err != nil {
		return err
	}
	pool, err := server.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	detail, err := evaluation.NewService(evaluation.NewStore(pool)).Import(cmd.Context(), "", doc)
	if err != nil {
		return err
	}
	slog.Info("evaluation imported", "evaluationId", detail.ID, "name", detail.Name, "topics", len(detail.Topics))
	return nil
}
