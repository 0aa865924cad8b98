package secrets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/internal/secrets"
	"github.com/systmms/lakebench/tests/fakes"
)

func newGCPSource(t *testing.T, fake *fakes.FakeGCPSecretManagerClient) *secrets.GCPSource {
	t.Helper()
	src, err := secrets.NewGCPSource(logging.New(false, true), secrets.WithGCPClient(fake))
	require.NoError(t, err)
	return src
}

func TestGCPSourceResolve(t *testing.T) {
	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddSecretString("bench-project", "workspace-token", "pat-value")

	src := newGCPSource(t, fake)
	require.Equal(t, secrets.SchemeGCPSM, src.Scheme())

	got, err := src.Resolve(context.Background(), secrets.Ref{Path: "bench-project/workspace-token"})
	require.NoError(t, err)
	assert.Equal(t, "pat-value", got)
}

func TestGCPSourceFullResourceName(t *testing.T) {
	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddSecretString("bench-project", "token", "v1-value")

	src := newGCPSource(t, fake)

	// A full resource name passes through untouched.
	got, err := src.Resolve(context.Background(), secrets.Ref{
		Path: "projects/bench-project/secrets/token/versions/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1-value", got)

	// Without a /versions/ segment, the default version applies.
	got, err = src.Resolve(context.Background(), secrets.Ref{
		Path: "projects/bench-project/secrets/token",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1-value", got)
}

func TestGCPSourceVersionSelector(t *testing.T) {
	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddSecretString("bench-project", "token", "same")
	fake.Versions["projects/bench-project/secrets/token/versions/7"] = []byte("seventh")

	src := newGCPSource(t, fake)

	got, err := src.Resolve(context.Background(), secrets.Ref{
		Path:    "bench-project/token",
		Version: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "seventh", got)
}

// With no project in the reference, the configured project fills in.
func TestGCPSourceDefaultProject(t *testing.T) {
	t.Setenv("LAKEBENCH_GCP_PROJECT", "env-project")

	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddSecretString("env-project", "solo-secret", "from-env-project")

	src := newGCPSource(t, fake)

	got, err := src.Resolve(context.Background(), secrets.Ref{Path: "solo-secret"})
	require.NoError(t, err)
	assert.Equal(t, "from-env-project", got)
}

func TestGCPSourceNoProjectConfigured(t *testing.T) {
	t.Setenv("LAKEBENCH_GCP_PROJECT", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("GCLOUD_PROJECT", "")

	src := newGCPSource(t, fakes.NewFakeGCPSecretManagerClient())

	_, err := src.Resolve(context.Background(), secrets.Ref{Path: "solo-secret"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a project")
}

func TestGCPSourceNotFound(t *testing.T) {
	src := newGCPSource(t, fakes.NewFakeGCPSecretManagerClient())

	_, err := src.Resolve(context.Background(), secrets.Ref{Path: "bench-project/missing"})
	require.Error(t, err)
	assert.True(t, secrets.IsNotFound(err))
}

func TestGCPSourceBackendFailure(t *testing.T) {
	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddError("projects/bench-project/secrets/token/versions/latest",
		fakes.GCPPermissionDeniedError("caller lacks secretmanager.versions.access"))

	src := newGCPSource(t, fake)
	_, err := src.Resolve(context.Background(), secrets.Ref{Path: "bench-project/token"})
	require.Error(t, err)
	assert.False(t, secrets.IsNotFound(err))

	var opErr *secrets.SourceOpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, secrets.SchemeGCPSM, opErr.Scheme)
}

func TestGCPSourceFieldExtraction(t *testing.T) {
	fake := fakes.NewFakeGCPSecretManagerClient()
	fake.AddSecretString("bench-project", "db-creds", `{"password":"pw"}`)

	src := newGCPSource(t, fake)

	got, err := src.Resolve(context.Background(), secrets.Ref{
		Path:  "bench-project/db-creds",
		Field: "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "pw", got)
}

func TestGCPSourceCheck(t *testing.T) {
	t.Setenv("LAKEBENCH_GCP_PROJECT", "bench-project")

	fake := fakes.NewFakeGCPSecretManagerClient()
	src := newGCPSource(t, fake)

	// An empty project listing still proves the backend answered.
	assert.NoError(t, src.Check(context.Background()))

	fake.AddSecretString("bench-project", "anything", "v")
	assert.NoError(t, src.Check(context.Background()))
}

func TestGCPSourceCheckWithoutProject(t *testing.T) {
	t.Setenv("LAKEBENCH_GCP_PROJECT", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("GCLOUD_PROJECT", "")

	src := newGCPSource(t, fakes.NewFakeGCPSecretManagerClient())
	assert.Error(t, src.Check(context.Background()))
}
