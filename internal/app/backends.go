package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"covercraft/internal/config"
	"covercraft/internal/cover"
	"covercraft/internal/payment"
	"covercraft/internal/storage"
	"covercraft/internal/storage/ch"
	"covercraft/internal/storage/dynamo"
	"covercraft/internal/storage/stubs"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func newLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Ledger, error) {
	switch cfg.LedgerBackend {
	case config.LedgerClickHouse:
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		return db, nil

	case config.LedgerDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		logger.Info("Using DynamoDB ledger", zap.String("table", cfg.DynamoDBTable))
		ledger, err := dynamo.New(client, cfg.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB ledger: %w", err)
		}
		return ledger, nil

	default:
		logger.Warn("Using in-memory ledger; balances are lost on restart")
		return stubs.NewMockLedger(), nil
	}
}

func newGateway(cfg *config.Config, logger *zap.Logger) (payment.Gateway, error) {
	if cfg.FlutterwaveSecretKey == "" {
		logger.Warn("FLUTTERWAVE_SECRET_KEY not set, using sandbox checkout links")
		return payment.Sandbox{}, nil
	}
	fw, err := payment.NewFlutterwave(cfg.FlutterwaveSecretKey, logger.Named("flutterwave"),
		payment.WithFlutterwaveBaseURL(cfg.FlutterwaveBaseURL),
		payment.WithRedirectURL(cfg.PaymentRedirectURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment gateway: %w", err)
	}
	return fw, nil
}

// newCoverService composes the generative backend (when configured) in front
// of the placeholder service
func newCoverService(cfg *config.Config, logger *zap.Logger) (*cover.Service, error) {
	var producers []cover.Producer

	if cfg.ImageAPIKey != "" {
		gen, err := cover.NewGenerative(cfg.ImageAPIKey,
			cover.WithBaseURL(cfg.ImageBaseURL),
			cover.WithModel(cfg.ImageModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create image backend: %w", err)
		}
		producers = append(producers, gen)
		logger.Info("Generative cover backend enabled")
	}
	producers = append(producers, cover.NewPlaceholder(cfg.PlaceholderURL))

	if cfg.VerifyCovers {
		checker := cover.HTTPChecker{}
		for i, p := range producers {
			producers[i] = cover.Verified(p, checker)
		}
	}

	return cover.NewService(cover.Chain(producers...), logger.Named("cover")), nil
}
