package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/lakebench/internal/config"
	lberrors "github.com/systmms/lakebench/internal/errors"
	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/internal/secrets"
)

func TestNewDoctorCommand(t *testing.T) {
	t.Parallel()

	app := &App{Logger: logging.New(false, true)}
	cmd := NewDoctorCommand(app)

	assert.Equal(t, "doctor", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}

func TestDoctorCommand_MissingConfig(t *testing.T) {
	t.Setenv(config.EnvWorkspaceHost, "")
	t.Setenv(config.EnvWorkspaceToken, "")
	t.Setenv(config.EnvInstance, "")

	app := &App{Logger: logging.New(false, true)}
	cmd := NewDoctorCommand(app)

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is incomplete")
	assert.Contains(t, output, "CHECK")
	assert.Contains(t, output, "Configuration")
	assert.Contains(t, output, "missing required settings")
	assert.Contains(t, output, "Summary: 0/1 checks passed")
}

func TestConfigCheckFailure(t *testing.T) {
	t.Parallel()

	res := configCheckFailure(lberrors.ConfigError{
		MissingFields: []string{config.EnvWorkspaceHost, config.EnvWorkspaceToken},
	})
	assert.Equal(t, statusFail, res.Status)
	assert.Contains(t, res.Message, config.EnvWorkspaceHost)
	assert.Contains(t, res.Message, config.EnvWorkspaceToken)
	require.NotEmpty(t, res.Suggestions)
	assert.Contains(t, res.Suggestions[0], "export "+config.EnvWorkspaceHost)
	assert.Contains(t, res.Suggestions[len(res.Suggestions)-1], "lakebench login")
}

func TestConfigCheckFailurePlainError(t *testing.T) {
	t.Parallel()

	res := configCheckFailure(fmt.Errorf("boom\nsecond line"))
	assert.Equal(t, statusFail, res.Status)
	assert.Equal(t, "boom", res.Message)
	assert.Empty(t, res.Suggestions)
}

func TestReferencedSchemes(t *testing.T) {
	t.Setenv(config.EnvWorkspaceToken, "keyring://lakebench/ws.example.com")
	t.Setenv(config.EnvPostgresDSN, "aws-sm://lakebench/baseline-dsn")
	t.Setenv(config.EnvMySQLDSN, "mysql://literal-not-a-secret-ref")

	schemes := referencedSchemes()
	assert.True(t, schemes[secrets.SchemeKeyring])
	assert.True(t, schemes[secrets.SchemeAWSSM])
	assert.Len(t, schemes, 2)
}

func TestReferencedSchemesAllLiteral(t *testing.T) {
	t.Setenv(config.EnvWorkspaceToken, "dapi-token-value")
	t.Setenv(config.EnvPostgresDSN, "")
	t.Setenv(config.EnvMySQLDSN, "")

	assert.Empty(t, referencedSchemes())
}

func TestCheckSecretSourceEnv(t *testing.T) {
	t.Parallel()

	resolver := secrets.NewResolver(logging.New(false, true))
	res := checkSecretSource(context.Background(), resolver, secrets.SchemeEnv)

	assert.Equal(t, statusOK, res.Status)
	assert.Equal(t, "source is reachable", res.Message)
}

func TestCheckSecretSourceUnknownScheme(t *testing.T) {
	t.Parallel()

	resolver := secrets.NewResolver(logging.New(false, true))
	res := checkSecretSource(context.Background(), resolver, "vault")

	assert.Equal(t, statusFail, res.Status)
	assert.Contains(t, res.Message, "vault")
	assert.NotEmpty(t, res.Suggestions)
}

func TestCheckRotationHeadroom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rotation   time.Duration
		maxAge     time.Duration
		wantStatus string
		wantMsg    string
	}{
		{
			name:       "defaults leave comfortable margin",
			rotation:   50 * time.Minute,
			maxAge:     45 * time.Minute,
			wantStatus: statusOK,
			wantMsg:    "10m0s of margin",
		},
		{
			name:       "tight settings warn",
			rotation:   58 * time.Minute,
			maxAge:     45 * time.Minute,
			wantStatus: statusWarn,
			wantMsg:    "only 2m0s of margin",
		},
		{
			name:       "rotation at the validity window fails",
			rotation:   60 * time.Minute,
			maxAge:     45 * time.Minute,
			wantStatus: statusFail,
			wantMsg:    "settings let credentials reach 1h0m0s",
		},
		{
			name:       "max age past the window fails",
			rotation:   30 * time.Minute,
			maxAge:     65 * time.Minute,
			wantStatus: statusFail,
			wantMsg:    "settings let credentials reach 1h5m0s",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Config{
				RotationInterval: tt.rotation,
				CredentialMaxAge: tt.maxAge,
			}
			res := checkRotationHeadroom(cfg)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Contains(t, res.Message, tt.wantMsg)
			if tt.wantStatus != statusOK {
				assert.NotEmpty(t, res.Suggestions)
			}
		})
	}
}

func TestDisplayCheckResults(t *testing.T) {
	results := []checkResult{
		{Name: "Configuration", Status: statusOK, Message: "instance ok"},
		{Name: "Instance", Status: statusWarn, Message: "starting", Suggestions: []string{"Wait for AVAILABLE"}},
		{Name: "Database", Status: statusFail, Message: "ping failed", Suggestions: []string{"Check the endpoint"}},
	}

	output := captureStdout(t, func() {
		displayCheckResults(results)
	})

	assert.Contains(t, output, "CHECK")
	assert.Contains(t, output, "✓ ok")
	assert.Contains(t, output, "⚠ warn")
	assert.Contains(t, output, "✗ fail")
	assert.Contains(t, output, "Instance suggestions:")
	assert.Contains(t, output, "  • Check the endpoint")
}

func TestSummarize(t *testing.T) {
	allGood := []checkResult{
		{Name: "a", Status: statusOK},
		{Name: "b", Status: statusWarn},
	}
	var err error
	output := captureStdout(t, func() {
		err = summarize(allGood)
	})
	assert.NoError(t, err)
	assert.Contains(t, output, "Summary: 2/2 checks passed")

	withFailure := append(allGood, checkResult{Name: "c", Status: statusFail})
	output = captureStdout(t, func() {
		err = summarize(withFailure)
	})
	assert.Error(t, err)
	assert.Contains(t, output, "Summary: 2/3 checks passed")
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "one", firstLine("one\ntwo"))
	assert.Equal(t, "plain", firstLine("plain"))
	assert.Equal(t, "", firstLine(""))
}

func TestSortedSchemes(t *testing.T) {
	t.Parallel()

	got := sortedSchemes(map[string]bool{"keyring": true, "aws-sm": true, "env": true})
	assert.Equal(t, []string{"aws-sm", "env", "keyring"}, got)
}

// captureStdout runs fn with os.Stdout swapped for a pipe and returns what
// it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}
