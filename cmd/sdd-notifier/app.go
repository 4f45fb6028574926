package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/config"
	"github.com/cyphera/sdd-notifier/internal/constants"
	"github.com/cyphera/sdd-notifier/internal/dedup"
	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/render"
	"github.com/cyphera/sdd-notifier/internal/services"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Application holds all dependencies for the Lambda handler
type Application struct {
	sddService *services.SDDService
	logger     *zap.Logger
}

// HandleRequest is the actual Lambda handler function
func (app *Application) HandleRequest(ctx context.Context, req business.NotifyRequest) (*business.BatchOutcome, error) {
	app.logger.Info("Starting SDD notification batch",
		zap.String("request_type", req.RequestType),
		zap.Int("records", len(req.Details)))

	outcome, err := app.sddService.SendOneAtATime(ctx, &req)
	if err != nil {
		app.logger.Error("Batch rejected", zap.Error(err))
		return nil, fmt.Errorf("error processing notification batch: %w", err)
	}

	if outcome.HasFailures() {
		app.logger.Warn("Batch completed with failed records",
			zap.String("batch_id", outcome.BatchID.String()),
			zap.Int("failed", outcome.Failed))
	}
	return outcome, nil
}

// LocalHandleRequest runs the request stored in path once and writes the
// outcome as JSON to out.
func (app *Application) LocalHandleRequest(ctx context.Context, path string, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("SDD_REQUEST_FILE is required in local mode")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}

	var req business.NotifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("failed to parse request file: %w", err)
	}

	outcome, err := app.HandleRequest(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

// secretSource is the part of the Secrets Manager client used at startup.
type secretSource interface {
	GetSecretString(ctx context.Context, secretArnEnvVar string, fallbackEnvVar string) (string, error)
	GetSecretJSON(ctx context.Context, secretArnEnvVar string, fallbackEnvVar string, target interface{}) error
}

// loadCardKeys returns the default card key plus any keys by id.
func loadCardKeys(ctx context.Context, secrets secretSource) (cardcrypto.StaticKeySource, error) {
	defaultKey, err := secrets.GetSecretString(ctx, config.CardKeyARNEnv, config.CardKeyEnv)
	if err != nil {
		return cardcrypto.StaticKeySource{}, fmt.Errorf("failed to get card key: %w", err)
	}
	if defaultKey == "" {
		return cardcrypto.StaticKeySource{}, fmt.Errorf("card key is empty")
	}

	keys := cardcrypto.StaticKeySource{Default: defaultKey}
	if os.Getenv(config.CardKeysARNEnv) != "" || os.Getenv(config.CardKeysEnv) != "" {
		if err := secrets.GetSecretJSON(ctx, config.CardKeysARNEnv, config.CardKeysEnv, &keys.ByID); err != nil {
			return cardcrypto.StaticKeySource{}, fmt.Errorf("failed to get card keys by id: %w", err)
		}
	}
	return keys, nil
}

// databaseURL builds the DSN from the RDS secret in deployed stages and reads
// DATABASE_URL locally.
func databaseURL(ctx context.Context, cfg *config.Config, secrets secretSource) (string, error) {
	if !cfg.IsDeployed() {
		dsn, err := secrets.GetSecretString(ctx, config.DatabaseURLARNEnv, config.DatabaseURLEnv)
		if err != nil {
			return "", fmt.Errorf("failed to get DATABASE_URL: %w", err)
		}
		return dsn, nil
	}

	if cfg.DBHost == "" || cfg.DBName == "" {
		return "", fmt.Errorf("missing required DB environment variables for deployed environment (DB_HOST, DB_NAME, %s)", config.RDSSecretARNEnv)
	}

	type RdsSecret struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	var secretData RdsSecret
	if err := secrets.GetSecretJSON(ctx, config.RDSSecretARNEnv, "", &secretData); err != nil {
		return "", fmt.Errorf("failed to retrieve or parse RDS secret: %w", err)
	}
	if secretData.Username == "" || secretData.Password == "" {
		return "", fmt.Errorf("username or password not found in RDS secret data")
	}

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(secretData.Username), url.QueryEscape(secretData.Password),
		cfg.DBHost, cfg.DBName, cfg.DBSSLMode), nil
}

// buildStore opens the configured dedup store. The returned func releases it.
func buildStore(ctx context.Context, cfg *config.Config, secrets secretSource, log *zap.Logger) (dedup.Store, func(), error) {
	switch cfg.DedupBackend {
	case constants.DedupBackendMemory:
		log.Warn("Using in-memory dedup store, duplicates are only detected within this process")
		return dedup.NewMemoryStore(), func() {}, nil

	case constants.DedupBackendRedis:
		client, err := dedup.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return dedup.NewRedisStore(client, cfg.RedisPrefix, cfg.DedupTTL).WithClaimLease(cfg.ClaimLease), func() { _ = client.Close() }, nil

	case constants.DedupBackendPostgres:
		dsn, err := databaseURL(ctx, cfg, secrets)
		if err != nil {
			return nil, nil, err
		}
		poolConfig, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse database DSN: %w", err)
		}
		poolConfig.MaxConns = cfg.DBMaxConns
		poolConfig.MinConns = 1
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = time.Minute * 15

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to create connection pool: %w", err)
		}
		store := dedup.NewPostgresStore(pool).WithClaimLease(cfg.ClaimLease)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported dedup backend %q", cfg.DedupBackend)
	}
}

// buildRenderer loads the template from TemplatePath or uses the built-in one.
func buildRenderer(cfg *config.Config, log *zap.Logger) (*render.Renderer, error) {
	tmpl := render.DefaultTemplate()
	if cfg.TemplatePath != "" {
		loaded, err := render.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, err
		}
		tmpl = loaded
	}

	return render.NewRenderer(tmpl, render.NewPDFRasterizer(cfg.QRSize), render.Config{
		OutputDir:  cfg.OutputDir,
		CSVColumns: cfg.CSVColumns,
	}, log), nil
}

func dispatcherConfig(cfg *config.Config) notify.DispatcherConfig {
	retry := notify.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	retry.InitialInterval = cfg.RetryInitial
	retry.MaxInterval = cfg.RetryMax
	return notify.DispatcherConfig{
		Retry:          retry,
		SendsPerSecond: cfg.SendsPerSecond,
		Burst:          cfg.SendBurst,
	}
}
