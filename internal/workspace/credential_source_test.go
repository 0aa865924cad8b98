package workspace_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lakebench/internal/workspace"
	"github.com/systmms/lakebench/pkg/auth"
)

var _ auth.CredentialSource = (*workspace.CredentialSource)(nil)

// fakeAPI is a scripted control plane for credential-source tests.
type fakeAPI struct {
	instance *workspace.DatabaseInstance
	getErr   error

	user    workspace.User
	userErr error

	token      string
	expiration time.Time
	genErr     error

	getCalls   int
	userCalls  int
	requestIDs []string
	instances  [][]string
}

func (f *fakeAPI) GetDatabaseInstance(ctx context.Context, name string) (*workspace.DatabaseInstance, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.instance, nil
}

func (f *fakeAPI) GenerateCredential(ctx context.Context, requestID string, instanceNames []string) (*workspace.Credential, error) {
	f.requestIDs = append(f.requestIDs, requestID)
	f.instances = append(f.instances, instanceNames)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &workspace.Credential{Token: f.token, ExpirationTime: f.expiration}, nil
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*workspace.User, error) {
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	user := f.user
	return &user, nil
}

func availableInstance() *workspace.DatabaseInstance {
	return &workspace.DatabaseInstance{
		Name:         "bench-primary",
		State:        workspace.InstanceAvailable,
		ReadWriteDNS: "instance-abc.database.example.com",
		PGVersion:    "16",
	}
}

// signedToken builds a real JWT carrying the given claims. The signing key is
// irrelevant; subjects are read without verification.
func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// TestNewCredentialSourceResolvesInstance checks that construction resolves
// the instance once and exposes its coordinates as the endpoint.
func TestNewCredentialSourceResolvesInstance(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: availableInstance()}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Database:  "bench",
		Port:      5432,
		SSLMode:   "require",
		Principal: "svc-bench@example.com",
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, auth.Endpoint{
		Host:     "instance-abc.database.example.com",
		Port:     5432,
		Database: "bench",
		SSLMode:  "require",
	}, source.Endpoint())
	assert.Equal(t, 1, api.getCalls)
}

// TestNewCredentialSourceDefaults checks the fill-ins when only the instance
// name is configured.
func TestNewCredentialSourceDefaults(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: availableInstance(), user: workspace.User{UserName: "owner@example.com"}}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-primary",
	}, testLogger())
	require.NoError(t, err)

	endpoint := source.Endpoint()
	assert.Equal(t, 5432, endpoint.Port)
	assert.Equal(t, "postgres", endpoint.Database)
	assert.Equal(t, "require", endpoint.SSLMode)
}

// TestNewCredentialSourceMissingInstance checks that a does-not-exist answer
// becomes an InitError wrapping the instance-not-found sentinel.
func TestNewCredentialSourceMissingInstance(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{getErr: &workspace.APIError{
		Status: http.StatusNotFound,
		Code:   "RESOURCE_DOES_NOT_EXIST",
	}}

	_, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-missing",
	}, testLogger())
	require.Error(t, err)

	var initErr *auth.InitError
	require.ErrorAs(t, err, &initErr)
	assert.True(t, auth.IsInstanceNotFound(err))
	assert.Contains(t, err.Error(), "bench-missing")
}

// TestNewCredentialSourceResolveFailure checks that other control-plane
// failures are still fatal but not mistaken for a missing instance.
func TestNewCredentialSourceResolveFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{getErr: &workspace.APIError{Status: http.StatusInternalServerError, Message: "scripted"}}

	_, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-primary",
	}, testLogger())
	require.Error(t, err)

	var initErr *auth.InitError
	require.ErrorAs(t, err, &initErr)
	assert.False(t, auth.IsInstanceNotFound(err))
}

// TestNewCredentialSourceInstanceWithoutEndpoint checks that an instance
// still provisioning, with no DNS name yet, is rejected at construction.
func TestNewCredentialSourceInstanceWithoutEndpoint(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: &workspace.DatabaseInstance{Name: "bench-primary", State: "STARTING"}}

	_, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-primary",
	}, testLogger())
	require.Error(t, err)

	var initErr *auth.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, err.Error(), "no endpoint")
	assert.Contains(t, err.Error(), "STARTING")
}

// TestFallbackPrincipalFromCurrentUser checks that with no configured
// principal the source asks the control plane who the token belongs to, and
// uses that identity when a minted token's subject is unreadable.
func TestFallbackPrincipalFromCurrentUser(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		instance: availableInstance(),
		user:     workspace.User{UserName: "owner@example.com"},
		token:    "not-a-jwt",
	}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-primary",
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, api.userCalls)

	cred, err := source.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", cred.Subject)
}

// TestConfiguredPrincipalSkipsLookup checks that an explicit principal means
// no current-user round trip at all.
func TestConfiguredPrincipalSkipsLookup(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: availableInstance(), token: "not-a-jwt"}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Principal: "svc-bench@example.com",
	}, testLogger())
	require.NoError(t, err)
	assert.Zero(t, api.userCalls)

	cred, err := source.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "svc-bench@example.com", cred.Subject)
}

// TestNoPrincipalAndLookupFailure checks that construction fails when there
// is no usable fallback identity at all.
func TestNoPrincipalAndLookupFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		instance: availableInstance(),
		userErr:  &workspace.APIError{Status: http.StatusForbidden},
	}

	_, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance: "bench-primary",
	}, testLogger())
	require.Error(t, err)

	var initErr *auth.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, err.Error(), "fallback principal")
}

// TestMintDecodesTokenSubject checks the normal mint path: the login role
// comes from the token's subject claim, not from configuration.
func TestMintDecodesTokenSubject(t *testing.T) {
	t.Parallel()

	expiry := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		instance:   availableInstance(),
		token:      "",
		expiration: expiry,
	}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Principal: "fallback@example.com",
	}, testLogger())
	require.NoError(t, err)

	api.token = signedToken(t, jwt.MapClaims{
		"sub": "minted-role@example.com",
		"exp": expiry.Unix(),
	})

	cred, err := source.Mint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "minted-role@example.com", cred.Subject)
	assert.Equal(t, api.token, string(cred.Token))
	assert.True(t, cred.ExpiresAt.Equal(expiry))
	assert.Equal(t, [][]string{{"bench-primary"}}, api.instances)
}

// TestMintTokenWithoutSubjectFallsBack checks that a structurally valid JWT
// missing the subject claim still mints, on the fallback identity.
func TestMintTokenWithoutSubjectFallsBack(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: availableInstance()}
	api.token = signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Principal: "fallback@example.com",
	}, testLogger())
	require.NoError(t, err)

	cred, err := source.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback@example.com", cred.Subject)
}

// TestMintRequestIDsAreFreshUUIDs checks that every mint sends a distinct,
// well-formed request ID, so control-plane deduplication can never replay an
// old credential into a new mint.
func TestMintRequestIDsAreFreshUUIDs(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{instance: availableInstance(), token: "not-a-jwt"}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Principal: "svc-bench@example.com",
	}, testLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := source.Mint(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, api.requestIDs, 3)
	seen := make(map[string]bool, 3)
	for _, id := range api.requestIDs {
		_, err := uuid.Parse(id)
		require.NoError(t, err, "request ID %q is not a UUID", id)
		assert.False(t, seen[id], "request ID %q was reused", id)
		seen[id] = true
	}
}

// TestMintFailureWrapsMintError checks that a control-plane failure surfaces
// as a MintError after exactly one attempt.
func TestMintFailureWrapsMintError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		instance: availableInstance(),
		genErr:   &workspace.APIError{Status: http.StatusTooManyRequests, Message: "throttled"},
	}

	source, err := workspace.NewCredentialSource(context.Background(), api, workspace.CredentialSourceConfig{
		Instance:  "bench-primary",
		Principal: "svc-bench@example.com",
	}, testLogger())
	require.NoError(t, err)

	_, err = source.Mint(context.Background())
	require.Error(t, err)

	var mintErr *auth.MintError
	require.ErrorAs(t, err, &mintErr)
	assert.Contains(t, err.Error(), "bench-primary")
	assert.Len(t, api.requestIDs, 1)

	var apiErr *workspace.APIError
	assert.True(t, errors.As(err, &apiErr))
}
