package fakes

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SecretData holds the data for a fake Secrets Manager secret.
type SecretData struct {
	SecretString  *string
	VersionID     *string
	VersionStages []string
}

// FakeSecretsManagerClient is an in-memory Secrets Manager.
type FakeSecretsManagerClient struct {
	Secrets map[string]*SecretData
	Errors  map[string]error

	// GetSecretValueFunc overrides GetSecretValue when set.
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
	// ListSecretsFunc overrides ListSecrets when set.
	ListSecretsFunc func(ctx context.Context, params *secretsmanager.ListSecretsInput) (*secretsmanager.ListSecretsOutput, error)

	// LastInput records the most recent GetSecretValue input for
	// assertions on version routing.
	LastInput *secretsmanager.GetSecretValueInput
}

// NewFakeSecretsManagerClient creates an empty fake.
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds a string secret with an AWSCURRENT stage.
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.Secrets[name] = &SecretData{
		SecretString:  aws.String(value),
		VersionID:     aws.String("11111111-2222-3333-4444-555555555555"),
		VersionStages: []string{"AWSCURRENT"},
	}
}

// AddError makes lookups of name fail with err.
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.Errors[name] = err
}

func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.LastInput = params
	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, params)
	}

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		return nil, &smtypes.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		Name:          params.SecretId,
		SecretString:  data.SecretString,
		VersionId:     data.VersionID,
		VersionStages: data.VersionStages,
	}, nil
}

func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if f.ListSecretsFunc != nil {
		return f.ListSecretsFunc(ctx, params)
	}
	return &secretsmanager.ListSecretsOutput{
		SecretList: []smtypes.SecretListEntry{},
	}, nil
}

// FakeSSMClient is an in-memory SSM Parameter Store.
type FakeSSMClient struct {
	Parameters map[string]string
	Errors     map[string]error

	// DescribeParametersFunc overrides DescribeParameters when set.
	DescribeParametersFunc func(ctx context.Context, params *ssm.DescribeParametersInput) (*ssm.DescribeParametersOutput, error)
}

// NewFakeSSMClient creates an empty fake.
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]string),
		Errors:     make(map[string]error),
	}
}

func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	value, exists := f.Parameters[name]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("parameter %s not found", name)),
		}
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  params.Name,
			Value: aws.String(value),
			Type:  ssmtypes.ParameterTypeSecureString,
		},
	}, nil
}

func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	if f.DescribeParametersFunc != nil {
		return f.DescribeParametersFunc(ctx, params)
	}
	return &ssm.DescribeParametersOutput{}, nil
}

// FakeSTSClient answers GetCallerIdentity with fixed values.
type FakeSTSClient struct {
	Account string
	ARN     string
	UserID  string
	Err     error
}

func (f *FakeSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.Account),
		Arn:     aws.String(f.ARN),
		UserId:  aws.String(f.UserID),
	}, nil
}
