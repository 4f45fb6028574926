package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/logger"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerClient wraps the AWS Secrets Manager client.
type SecretsManagerClient struct {
	svc SecretsAPI
}

// NewSecretsManagerClient creates and initializes a new Secrets Manager client.
// It uses the default AWS configuration chain (environment variables, shared config, IAM role).
func NewSecretsManagerClient(ctx context.Context) (*SecretsManagerClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return NewSecretsManagerClientWithAPI(secretsmanager.NewFromConfig(cfg)), nil
}

// NewSecretsManagerClientWithAPI builds a client around an existing API implementation.
func NewSecretsManagerClientWithAPI(svc SecretsAPI) *SecretsManagerClient {
	return &SecretsManagerClient{svc: svc}
}

// GetSecretString fetches a secret string from AWS Secrets Manager using an ARN specified by an environment variable.
// If the ARN environment variable is not set or fetching fails, it falls back to reading the
// secret directly from fallbackEnvVar. Secrets stored as a JSON object with a single key
// resolve to that key's value.
func (c *SecretsManagerClient) GetSecretString(ctx context.Context, secretArnEnvVar string, fallbackEnvVar string) (string, error) {
	secretArn := os.Getenv(secretArnEnvVar)

	if secretArn != "" {
		logger.Log.Debug("Attempting to fetch secret from Secrets Manager", zap.String("arnEnvVar", secretArnEnvVar))

		value, err := c.fetch(ctx, secretArn)
		if err == nil && value != "" {
			var secretJSON map[string]string
			jsonErr := json.Unmarshal([]byte(value), &secretJSON)

			if jsonErr == nil && len(secretJSON) == 1 {
				for key, v := range secretJSON {
					logger.Log.Info("Successfully fetched secret from Secrets Manager (extracted from single-key JSON)",
						zap.String("arnEnvVar", secretArnEnvVar),
						zap.String("jsonKey", key),
					)
					return v, nil
				}
			}

			if jsonErr == nil {
				logger.Log.Warn("Fetched secret from Secrets Manager was JSON but not single-key format, returning raw JSON string",
					zap.String("arnEnvVar", secretArnEnvVar),
					zap.Int("keyCount", len(secretJSON)),
				)
			} else {
				logger.Log.Info("Successfully fetched secret from Secrets Manager (treated as plain text)", zap.String("arnEnvVar", secretArnEnvVar))
			}
			return value, nil
		}

		logger.Log.Warn("Failed to retrieve secret from Secrets Manager, falling back to env var",
			zap.String("secretArnEnvVar", secretArnEnvVar),
			zap.String("fallbackEnvVar", fallbackEnvVar),
			zap.Error(err),
		)
	} else {
		logger.Log.Debug("Secret ARN environment variable not set, falling back to direct env var",
			zap.String("arnEnvVar", secretArnEnvVar),
			zap.String("fallbackEnvVar", fallbackEnvVar),
		)
	}

	if fallbackEnvVar != "" {
		if secretValue := os.Getenv(fallbackEnvVar); secretValue != "" {
			logger.Log.Info("Using secret value from direct environment variable", zap.String("envVar", fallbackEnvVar))
			return secretValue, nil
		}
	}

	logger.Log.Error("Failed to retrieve secret from both Secrets Manager and direct environment variable",
		zap.String("arnEnvVar", secretArnEnvVar),
		zap.String("fallbackEnvVar", fallbackEnvVar),
	)
	return "", fmt.Errorf("secret not found using ARN env var '%s' or direct env var '%s'", secretArnEnvVar, fallbackEnvVar)
}

// GetSecretJSON fetches a JSON secret and unmarshals it into target.
// The fallback env var, when set, must hold JSON as well.
func (c *SecretsManagerClient) GetSecretJSON(ctx context.Context, secretArnEnvVar string, fallbackEnvVar string, target interface{}) error {
	if secretArn := os.Getenv(secretArnEnvVar); secretArn != "" {
		value, err := c.fetch(ctx, secretArn)
		if err == nil {
			if err = json.Unmarshal([]byte(value), target); err == nil {
				logger.Log.Info("Successfully fetched and parsed JSON secret from Secrets Manager", zap.String("arnEnvVar", secretArnEnvVar))
				return nil
			}
		}
		logger.Log.Warn("Failed to load JSON secret from Secrets Manager, falling back",
			zap.String("arnEnvVar", secretArnEnvVar),
			zap.Error(err),
		)
	}

	if fallbackEnvVar != "" {
		if fallbackValue := os.Getenv(fallbackEnvVar); fallbackValue != "" {
			if err := json.Unmarshal([]byte(fallbackValue), target); err != nil {
				return fmt.Errorf("fallback env var %s is not valid JSON: %w", fallbackEnvVar, err)
			}
			return nil
		}
	}

	return fmt.Errorf("secret not found or parsable using ARN env var '%s' or direct env var '%s'", secretArnEnvVar, fallbackEnvVar)
}

func (c *SecretsManagerClient) fetch(ctx context.Context, secretArn string) (string, error) {
	result, err := c.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretArn),
	})
	if err != nil {
		return "", err
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretArn)
	}
	return *result.SecretString, nil
}
