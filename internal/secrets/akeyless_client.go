package secrets

import (
	"context"
	"fmt"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"
)

type akeylessSettings struct {
	Gateway    string
	AccessID   string
	AccessKey  string
	AccessType string // api_key (default), aws_iam, azure_ad, gcp
}

// akeylessSDKClient implements AkeylessAPI with the official SDK.
type akeylessSDKClient struct {
	apiClient *akeyless.APIClient
	settings  akeylessSettings
}

func newAkeylessSDKClient(settings akeylessSettings) (*akeylessSDKClient, error) {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: settings.Gateway},
	}

	return &akeylessSDKClient{
		apiClient: akeyless.NewAPIClient(configuration),
		settings:  settings,
	}, nil
}

// Authenticate obtains an access token. Cloud access types delegate
// identity proof to the ambient AWS/Azure/GCP environment.
func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(c.settings.AccessID)

	switch c.settings.AccessType {
	case "", "api_key":
		authBody.SetAccessKey(c.settings.AccessKey)
	case "aws_iam", "azure_ad", "gcp":
		authBody.SetAccessType(c.settings.AccessType)
	default:
		return "", 0, fmt.Errorf("unsupported akeyless access type: %s", c.settings.AccessType)
	}

	authRes, _, err := c.apiClient.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("akeyless authentication failed: %w", err)
	}

	// Tokens last about 30 minutes; cache for less to stay ahead of it.
	return authRes.GetToken(), 25 * time.Minute, nil
}

// GetSecret retrieves a secret value by path.
func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string, version *int) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)
	if version != nil {
		body.SetVersion(int32(*version))
	}

	res, _, err := c.apiClient.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}

	value, ok := res[path]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", path)
	}
	return value, nil
}

// ListItems lists item names under a path.
func (c *akeylessSDKClient) ListItems(ctx context.Context, token, path string) ([]string, error) {
	body := akeyless.NewListItems()
	body.SetPath(path)
	body.SetToken(token)

	res, _, err := c.apiClient.V2Api.ListItems(ctx).Body(*body).Execute()
	if err != nil {
		return nil, err
	}

	items := res.GetItems()
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.GetItemName()
	}
	return names, nil
}

var _ AkeylessAPI = (*akeylessSDKClient)(nil)
