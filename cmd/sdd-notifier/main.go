package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	awsclient "github.com/cyphera/sdd-notifier/internal/client/aws"
	"github.com/cyphera/sdd-notifier/internal/config"
	"github.com/cyphera/sdd-notifier/internal/dedup"
	"github.com/cyphera/sdd-notifier/internal/logger"
	"github.com/cyphera/sdd-notifier/internal/metrics"
	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/publisher"
	"github.com/cyphera/sdd-notifier/internal/services"
)

func main() {
	// Load .env file for local development
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v. Proceeding with environment variables/secrets.", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	logger.InitLogger(cfg.Stage)
	logger.Info("Lambda Cold Start: Initializing SDD notifier for stage", zap.String("stage", cfg.Stage))
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	appLog := logger.With(zap.String("service", "sdd-notifier"), zap.String("stage", cfg.Stage))

	// Initialize AWS Secrets Manager Client
	secretsClient, err := awsclient.NewSecretsManagerClient(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize AWS Secrets Manager client", zap.Error(err))
	}

	cardKeys, err := loadCardKeys(ctx, secretsClient)
	if err != nil {
		logger.Fatal("Failed to load card keys", zap.Error(err))
	}

	store, closeStore, err := buildStore(ctx, cfg, secretsClient, appLog)
	if err != nil {
		logger.Fatal("Failed to initialize dedup store", zap.Error(err), zap.String("backend", cfg.DedupBackend))
	}
	defer closeStore()

	renderer, err := buildRenderer(cfg, appLog)
	if err != nil {
		logger.Fatal("Failed to load notification template", zap.Error(err), zap.String("path", cfg.TemplatePath))
	}

	// Get Resend API configuration
	resendAPIKey, err := secretsClient.GetSecretString(ctx, config.ResendAPIKeyARNEnv, config.ResendAPIKeyEnv)
	if err != nil || resendAPIKey == "" {
		logger.Fatal("Failed to get RESEND_API_KEY", zap.Error(err))
	}
	transport := notify.NewResendTransport(resendAPIKey, cfg.FromEmail, cfg.FromName, appLog)

	// --- Initialize SQS Client (optional) ---
	var outcomePublisher publisher.OutcomePublisher = publisher.NopPublisher{}
	if cfg.SQSQueueURL == "" {
		logger.Warn("SQS_QUEUE_URL not set, batch outcomes will not be published")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		outcomePublisher = publisher.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL)
	}

	sddService := services.NewSDDService(services.SDDDependencies{
		Decryptor:  cardcrypto.NewDecryptor(cardKeys),
		Gate:       dedup.NewGate(store),
		Renderer:   renderer,
		Assembler:  notify.NewAssembler(cfg.SubjectPrefix),
		Dispatcher: notify.NewDispatcher(transport, dispatcherConfig(cfg), appLog),
		Publisher:  outcomePublisher,
		Metrics:    metrics.New(prometheus.DefaultRegisterer),
	}, services.SDDConfig{
		IncludeCSV:   cfg.IncludeCSV,
		Concurrency:  cfg.Concurrency,
		RequestTypes: cfg.RequestTypes,
	}, appLog)

	app := &Application{
		sddService: sddService,
		logger:     appLog,
	}

	if cfg.IsDeployed() {
		// AWS Lambda environment
		lambda.Start(app.HandleRequest)
		return
	}

	// Local development - run once
	if err := app.LocalHandleRequest(ctx, cfg.RequestFile, os.Stdout); err != nil {
		logger.Fatal("Error in LocalHandleRequest", zap.Error(err))
	}
}
