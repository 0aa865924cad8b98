package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/lakebench/internal/logging"
)

func TestNewRunCommand(t *testing.T) {
	t.Parallel()

	app := &App{Logger: logging.New(false, true)}
	cmd := NewRunCommand(app)

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	flags := cmd.Flags()
	assert.NotNil(t, flags.Lookup("workload"))
	assert.NotNil(t, flags.Lookup("concurrency"))
	assert.NotNil(t, flags.Lookup("iterations"))
	assert.NotNil(t, flags.Lookup("json"))
	assert.NotNil(t, flags.Lookup("metrics-addr"))

	engineFlag := flags.Lookup("engine")
	require.NotNil(t, engineFlag)
	assert.Equal(t, "lakebase", engineFlag.DefValue)
}

func TestNewRunCommandOverrideDefaults(t *testing.T) {
	t.Parallel()

	app := &App{Logger: logging.New(false, true)}
	cmd := NewRunCommand(app)

	// Zero means "use the workload's own settings".
	assert.Equal(t, "0", cmd.Flags().Lookup("concurrency").DefValue)
	assert.Equal(t, "0", cmd.Flags().Lookup("iterations").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("json").DefValue)
}
