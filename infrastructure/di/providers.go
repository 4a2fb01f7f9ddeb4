package di

import (
	"context"
	"fmt"

	"kujisan/application/ports"
	"kujisan/application/services"
	"kujisan/infrastructure/cache"
	"kujisan/infrastructure/cms"
	"kujisan/infrastructure/config"
	"kujisan/infrastructure/layout"
	"kujisan/infrastructure/messaging"
	"kujisan/infrastructure/messaging/eventbridge"
	"kujisan/infrastructure/persistence/dynamodb"
	"kujisan/infrastructure/persistence/memory"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BranchSource is a branch fetcher that can report its own health. The CMS
// client, the DynamoDB repository and the fixture store all satisfy it.
type BranchSource interface {
	ports.BranchFetcher
	ports.HealthChecker
}

// HealthCheckers names the dependencies checked by /ready
type HealthCheckers map[string]ports.HealthChecker

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() || cfg.IsLambda {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	), nil
}

// ProvideErrorHandler creates the HTTP error handler; development responses
// carry the raw error message
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("kujisan")
}

// ProvideTracerProvider starts OTLP export when tracing is enabled. A nil
// provider is valid and yields the global no-op tracer.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Features.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.TracingEndpoint)
}

// ProvideTracer returns the service tracer
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideAWSConfig creates AWS configuration; a configured endpoint points
// every client at a local emulator
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AWS.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideBranchSource creates the fetcher selected by source.kind
func ProvideBranchSource(
	cfg *config.Config,
	ddb *awsdynamodb.Client,
	logger *zap.Logger,
	metrics *observability.Collector,
) (BranchSource, error) {
	switch cfg.Source.Kind {
	case config.SourceSanity:
		client, err := cms.NewClient(cfg.CMS, logger, metrics)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.SourceDynamoDB:
		return dynamodb.NewBranchRepository(ddb, cfg.AWS.DynamoDBTable, cfg.AWS.RootIndexName, logger, metrics), nil
	case config.SourceFixture:
		store, err := memory.LoadFixtureFile(cfg.Source.FixturePath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown branch source %q", cfg.Source.Kind)
	}
}

// ProvideBranchFetcher wraps the source in a branch cache when re-expanding
// is configured to reuse earlier fetches
func ProvideBranchFetcher(
	source BranchSource,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) ports.BranchFetcher {
	if cfg.Tree.BranchCache != config.BranchCacheCache {
		return source
	}
	logger.Info("Branch cache enabled",
		zap.Duration("ttl", cfg.Tree.BranchCacheTTL),
		zap.Int("max_items", cfg.Tree.BranchCacheSize),
	)
	return cache.NewCachingFetcher(source, cfg.Tree.BranchCacheTTL, cfg.Tree.BranchCacheSize, logger, metrics)
}

// ProvideDirectory exposes the people and family reads of the source. The
// DynamoDB table stores branches only, so it yields nil.
func ProvideDirectory(source BranchSource, logger *zap.Logger) ports.DirectoryReader {
	directory, ok := source.(ports.DirectoryReader)
	if !ok {
		logger.Info("Branch source has no directory; people and family reads are disabled")
		return nil
	}
	return directory
}

// ProvideHealthCheckers lists the dependencies checked by /ready
func ProvideHealthCheckers(source BranchSource, cfg *config.Config) HealthCheckers {
	return HealthCheckers{cfg.Source.Kind: source}
}

// ProvideEventPublisher publishes tree events to EventBridge when enabled and
// to the log otherwise
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.Features.EnableEvents {
		return messaging.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.AWS.EventBusName, logger)
}

// ProvideLayoutService creates the layout service over the layered engine
func ProvideLayoutService(cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) *services.LayoutService {
	return services.NewLayoutService(layout.NewLayeredEngine(), cfg.Layout, logger, metrics)
}

// ProvideConfigWatcher hot-applies layout changes from the config file. It
// returns nil on Lambda and when no file was loaded.
func ProvideConfigWatcher(cfg *config.Config, layoutService *services.LayoutService, logger *zap.Logger) (*config.Watcher, error) {
	path := cfg.FilePath()
	if cfg.IsLambda || path == "" {
		return nil, nil
	}

	watcher, err := config.NewWatcher(path, cfg, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *config.Config) {
		layoutService.UpdateSettings(next.Layout)
	})
	return watcher, nil
}

// ProvideTreeDependencies bundles the collaborators shared by every session
func ProvideTreeDependencies(
	cfg *config.Config,
	fetcher ports.BranchFetcher,
	layoutService *services.LayoutService,
	publisher ports.EventPublisher,
	tracer trace.Tracer,
	logger *zap.Logger,
	metrics *observability.Collector,
) services.TreeDependencies {
	return services.TreeDependencies{
		Fetcher:      fetcher,
		Layout:       layoutService,
		Publisher:    publisher,
		Images:       ports.PassthroughImageResolver{},
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
		FetchTimeout: cfg.Tree.FetchTimeout,
	}
}

// ProvideSessionService creates the tree session registry
func ProvideSessionService(deps services.TreeDependencies, cfg *config.Config) *services.SessionService {
	return services.NewSessionService(deps, cfg.Tree.SessionTTL, cfg.Tree.MaxSessions)
}
