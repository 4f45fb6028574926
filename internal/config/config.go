package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cyphera/sdd-notifier/internal/constants"
	"github.com/cyphera/sdd-notifier/internal/helpers"
)

// Secret env var pairs: the first names an ARN in Secrets Manager, the second a
// plain env var used when no ARN is set.
const (
	CardKeyARNEnv       = "CARD_KEY_ARN"
	CardKeyEnv          = "CARD_KEY"
	CardKeysARNEnv      = "CARD_KEYS_ARN"
	CardKeysEnv         = "CARD_KEYS"
	ResendAPIKeyARNEnv  = "RESEND_API_KEY_ARN"
	ResendAPIKeyEnv     = "RESEND_API_KEY"
	DatabaseURLARNEnv   = "DATABASE_URL_ARN"
	DatabaseURLEnv      = "DATABASE_URL"
	RDSSecretARNEnv     = "RDS_SECRET_ARN"
	defaultFromEmail    = "noreply@cypherapay.com"
	defaultFromName     = "Cyphera"
	defaultQRSize       = 256
	defaultDBMaxConns   = 5
	defaultRetryMax     = 3
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryCeiling = 5 * time.Second
)

// Config is the runtime configuration of the notifier.
type Config struct {
	Stage string

	// Rendering
	OutputDir    string
	TemplatePath string
	IncludeCSV   bool
	CSVColumns   []string
	QRSize       int

	// Batch
	RequestTypes []string
	Concurrency  int
	RequestFile  string

	// Dedup store
	DedupBackend string
	DBHost       string
	DBName       string
	DBSSLMode    string
	DBMaxConns   int32
	RedisURL     string
	RedisPrefix  string
	DedupTTL     time.Duration
	ClaimLease   time.Duration

	// Email
	FromEmail      string
	FromName       string
	SubjectPrefix  string
	MaxRetries     int
	RetryInitial   time.Duration
	RetryMax       time.Duration
	SendsPerSecond float64
	SendBurst      int

	// Outcome events
	SQSQueueURL string
}

// LoadDotEnv reads a .env file for local development. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	stage := getEnv("STAGE", helpers.StageLocal)
	if !helpers.IsValidStage(stage) {
		return nil, fmt.Errorf("invalid STAGE %q: must be one of %s, %s, %s",
			stage, helpers.StageProd, helpers.StageDev, helpers.StageLocal)
	}

	defaultBackend := constants.DedupBackendMemory
	if helpers.IsDeployedStage(stage) {
		defaultBackend = constants.DedupBackendPostgres
	}

	cfg := &Config{
		Stage:         stage,
		OutputDir:     os.Getenv("SDD_OUTPUT_DIR"),
		TemplatePath:  os.Getenv("SDD_TEMPLATE_PATH"),
		CSVColumns:    getList("SDD_CSV_COLUMNS"),
		RequestTypes:  getList("SDD_REQUEST_TYPES"),
		RequestFile:   os.Getenv("SDD_REQUEST_FILE"),
		DedupBackend:  strings.ToLower(getEnv("DEDUP_BACKEND", defaultBackend)),
		DBHost:        os.Getenv("DB_HOST"),
		DBName:        os.Getenv("DB_NAME"),
		DBSSLMode:     getEnv("DB_SSLMODE", "require"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPrefix:   os.Getenv("REDIS_PREFIX"),
		FromEmail:     getEnv("SDD_FROM_EMAIL", defaultFromEmail),
		FromName:      getEnv("SDD_FROM_NAME", defaultFromName),
		SubjectPrefix: os.Getenv("SDD_SUBJECT_PREFIX"),
		SQSQueueURL:   os.Getenv("SQS_QUEUE_URL"),
	}

	var err error
	if cfg.IncludeCSV, err = getBool("SDD_INCLUDE_CSV", false); err != nil {
		return nil, err
	}
	if cfg.QRSize, err = getInt("SDD_QR_SIZE", defaultQRSize); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = getInt("SDD_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	maxConns, err := getInt("DB_MAX_CONNS", defaultDBMaxConns)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.DedupTTL, err = getDuration("DEDUP_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.ClaimLease, err = getDuration("DEDUP_CLAIM_LEASE", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("SDD_SEND_MAX_RETRIES", defaultRetryMax); err != nil {
		return nil, err
	}
	if cfg.RetryInitial, err = getDuration("SDD_SEND_RETRY_INITIAL", defaultRetryInitial); err != nil {
		return nil, err
	}
	if cfg.RetryMax, err = getDuration("SDD_SEND_RETRY_MAX", defaultRetryCeiling); err != nil {
		return nil, err
	}
	if cfg.SendsPerSecond, err = getFloat("SDD_SENDS_PER_SECOND", 0); err != nil {
		return nil, err
	}
	if cfg.SendBurst, err = getInt("SDD_SEND_BURST", 1); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the individual parsers cannot.
func (c *Config) Validate() error {
	switch c.DedupBackend {
	case constants.DedupBackendPostgres, constants.DedupBackendMemory:
	case constants.DedupBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when DEDUP_BACKEND is %s", constants.DedupBackendRedis)
		}
	default:
		return fmt.Errorf("invalid DEDUP_BACKEND %q", c.DedupBackend)
	}

	if c.DedupBackend == constants.DedupBackendMemory && helpers.IsDeployedStage(c.Stage) {
		return fmt.Errorf("the %s dedup backend cannot be used in stage %s", constants.DedupBackendMemory, c.Stage)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("SDD_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("SDD_SEND_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.SendsPerSecond < 0 {
		return fmt.Errorf("SDD_SENDS_PER_SECOND must not be negative")
	}
	return nil
}

// IsDeployed reports whether the config targets a deployed stage.
func (c *Config) IsDeployed() bool {
	return helpers.IsDeployedStage(c.Stage)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
