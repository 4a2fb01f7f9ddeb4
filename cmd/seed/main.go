// Command seed loads a YAML family fixture into the DynamoDB branch table,
// creating the table and its generation index first when they are missing.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"kujisan/infrastructure/config"
	"kujisan/infrastructure/di"
	"kujisan/infrastructure/persistence/dynamodb"
	"kujisan/infrastructure/persistence/memory"

	"go.uber.org/zap"
)

func main() {
	fixture := flag.String("fixture", "", "YAML fixture to load (defaults to source.fixture_path)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *fixture == "" {
		*fixture = cfg.Source.FixturePath
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	repo := dynamodb.NewBranchRepository(
		di.ProvideDynamoDBClient(awsCfg),
		cfg.AWS.DynamoDBTable,
		cfg.AWS.RootIndexName,
		logger,
		nil,
	)

	store, err := memory.LoadFixtureFile(*fixture, logger)
	if err != nil {
		logger.Fatal("Failed to load fixture", zap.String("path", *fixture), zap.Error(err))
	}

	created, err := repo.EnsureTable(ctx)
	if err != nil {
		logger.Fatal("Failed to ensure table", zap.String("table", cfg.AWS.DynamoDBTable), zap.Error(err))
	}
	if created {
		if err := waitForTable(ctx, repo); err != nil {
			logger.Fatal("Table never became ready", zap.Error(err))
		}
	}

	saved := 0
	for _, person := range store.All() {
		if err := repo.SaveBranch(ctx, person); err != nil {
			logger.Fatal("Failed to save branch", zap.String("person_id", person.ID.String()), zap.Error(err))
		}
		saved++
	}

	logger.Info("Seed complete",
		zap.String("table", cfg.AWS.DynamoDBTable),
		zap.String("fixture", *fixture),
		zap.Int("branches", saved),
		zap.Bool("table_created", created),
	)
}

func waitForTable(ctx context.Context, repo *dynamodb.BranchRepository) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := repo.HealthCheck(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
