package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the slice of the AWS STS client the identity probe uses.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerIdentity is the AWS principal the current credentials resolve to.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// AWSCallerIdentity reports who the ambient AWS credentials are, for
// doctor diagnostics. A nil client loads the default config.
func AWSCallerIdentity(ctx context.Context, client STSAPI) (CallerIdentity, error) {
	if client == nil {
		cfg, err := loadAWSConfig()
		if err != nil {
			return CallerIdentity{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = sts.NewFromConfig(cfg)
	}

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, &SourceOpError{Scheme: "aws", Op: "identity", Err: err}
	}

	identity := CallerIdentity{}
	if out.Account != nil {
		identity.Account = *out.Account
	}
	if out.Arn != nil {
		identity.ARN = *out.Arn
	}
	if out.UserId != nil {
		identity.UserID = *out.UserId
	}
	return identity, nil
}
