package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/lakebench/internal/logging"
)

// Optional environment overrides shared by the AWS-backed sources. The SDK
// default chain (profiles, SSO, IMDS) covers everything else.
const (
	envAWSRegion    = "LAKEBENCH_AWS_REGION"
	envAWSEndpoint  = "LAKEBENCH_AWS_ENDPOINT"
	envAWSAccessKey = "LAKEBENCH_AWS_ACCESS_KEY_ID"
	envAWSSecretKey = "LAKEBENCH_AWS_SECRET_ACCESS_KEY"
)

// SecretsManagerAPI is the slice of the AWS Secrets Manager client the
// source uses. Tests substitute a fake.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// SecretsManagerSource resolves aws-sm://name[#field][?version=v]
// references. The version is an AWS staging label (AWSCURRENT,
// AWSPREVIOUS) or a version id (UUID).
type SecretsManagerSource struct {
	client SecretsManagerAPI
	logger *logging.Logger
}

// SecretsManagerOption configures a SecretsManagerSource.
type SecretsManagerOption func(*SecretsManagerSource)

// WithSecretsManagerClient sets a custom client (for testing).
func WithSecretsManagerClient(client SecretsManagerAPI) SecretsManagerOption {
	return func(s *SecretsManagerSource) {
		s.client = client
	}
}

// NewSecretsManagerSource builds the source. Without an injected client it
// loads the AWS default config, honoring the LAKEBENCH_AWS_* overrides
// (static credentials and endpoint target LocalStack-style setups).
func NewSecretsManagerSource(logger *logging.Logger, opts ...SecretsManagerOption) (*SecretsManagerSource, error) {
	s := &SecretsManagerSource{logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s.client = secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			if endpoint := os.Getenv(envAWSEndpoint); endpoint != "" {
				o.BaseEndpoint = &endpoint
			}
		})
	}
	return s, nil
}

func loadAWSConfig() (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error

	if region := os.Getenv(envAWSRegion); region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(region))
	}
	if ak, sk := os.Getenv(envAWSAccessKey), os.Getenv(envAWSSecretKey); ak != "" && sk != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, ""),
		))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
}

// Scheme returns "aws-sm".
func (s *SecretsManagerSource) Scheme() string {
	return SchemeAWSSM
}

// Resolve fetches a secret value.
func (s *SecretsManagerSource) Resolve(ctx context.Context, ref Ref) (string, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref.Path),
	}
	if ref.Version != "" {
		if isVersionID(ref.Version) {
			input.VersionId = aws.String(ref.Version)
		} else {
			input.VersionStage = aws.String(ref.Version)
		}
	}

	result, err := s.client.GetSecretValue(ctx, input)
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref.Path)
		}
		return "", &SourceOpError{Scheme: SchemeAWSSM, Op: "fetch", Path: ref.Path, Err: err}
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value (binary secrets are not supported)", ref.Path)
	}

	if ref.Field != "" {
		return extractField(*result.SecretString, ref.Field)
	}
	return *result.SecretString, nil
}

// Check lists one secret, the cheapest call proving credentials work.
func (s *SecretsManagerSource) Check(ctx context.Context) error {
	_, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	return err
}

// isVersionID reports whether v looks like an AWS version UUID rather
// than a staging label.
func isVersionID(v string) bool {
	return len(v) == 36 && strings.Count(v, "-") == 4
}
