package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/logger"
	"github.com/polkiloo/orderflow/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repos repository.Factory
		log   *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		config.Module,
		logger.Module,
		postgres.Module,
		fx.Populate(&repos, &log),
	)
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start seeder: %v\n", err)
		os.Exit(1)
	}

	created, err := NewSeeder(repos.Users(), repos.Orders()).Run(ctx)
	if err != nil {
		log.Error("seeding failed", zap.Error(err))
	} else {
		log.Info("seeded pending orders", zap.Int("orders", created))
	}

	if stopErr := app.Stop(context.Background()); stopErr != nil {
		fmt.Fprintf(os.Stderr, "failed to stop seeder: %v\n", stopErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
