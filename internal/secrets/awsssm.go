package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/systmms/lakebench/internal/logging"
)

// SSMAPI is the slice of the AWS SSM client the source uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// ParameterStoreSource resolves aws-ssm://name references against AWS
// Systems Manager Parameter Store. SecureString parameters are decrypted.
type ParameterStoreSource struct {
	client SSMAPI
	logger *logging.Logger
}

// ParameterStoreOption configures a ParameterStoreSource.
type ParameterStoreOption func(*ParameterStoreSource)

// WithSSMClient sets a custom SSM client (for testing).
func WithSSMClient(client SSMAPI) ParameterStoreOption {
	return func(s *ParameterStoreSource) {
		s.client = client
	}
}

// NewParameterStoreSource builds the source, sharing the AWS config
// loading (and LAKEBENCH_AWS_* overrides) with the Secrets Manager source.
func NewParameterStoreSource(logger *logging.Logger, opts ...ParameterStoreOption) (*ParameterStoreSource, error) {
	s := &ParameterStoreSource{logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s.client = ssm.NewFromConfig(cfg)
	}
	return s, nil
}

// Scheme returns "aws-ssm".
func (s *ParameterStoreSource) Scheme() string {
	return SchemeAWSSSM
}

// Resolve fetches a parameter. Hierarchical names get their leading slash
// restored (the reference syntax consumes it); plain names pass through.
func (s *ParameterStoreSource) Resolve(ctx context.Context, ref Ref) (string, error) {
	name := ref.Path
	if strings.Contains(name, "/") && !strings.HasPrefix(name, "/") {
		name = "/" + name
	}

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ParameterNotFound") {
			return "", fmt.Errorf("%w: parameter %s", ErrNotFound, name)
		}
		return "", &SourceOpError{Scheme: SchemeAWSSSM, Op: "fetch", Path: name, Err: err}
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	if ref.Field != "" {
		return extractField(*result.Parameter.Value, ref.Field)
	}
	return *result.Parameter.Value, nil
}

// Check describes one parameter, the minimal-permission probe.
func (s *ParameterStoreSource) Check(ctx context.Context) error {
	_, err := s.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		MaxResults: aws.Int32(1),
	})
	return err
}
