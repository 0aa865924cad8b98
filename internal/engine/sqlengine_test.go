package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lakebench/pkg/auth"
)

// TestSQLEngineExecDrainsRows checks that Exec runs the query and consumes
// every row so the connection returns to the pool clean.
func TestSQLEngineExecDrainsRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	eng := NewFromDB("test", db, PostgresSleep)
	defer func() { _ = eng.Close() }()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(42).AddRow(7)
	mock.ExpectQuery("SELECT count").WillReturnRows(rows)

	require.NoError(t, eng.Exec(context.Background(), "SELECT count(*) FROM pg_tables"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSQLEngineExecQueryError checks that a failed query surfaces directly.
func TestSQLEngineExecQueryError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	eng := NewFromDB("test", db, PostgresSleep)
	defer func() { _ = eng.Close() }()

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection reset"))

	err = eng.Exec(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

// TestSQLEngineExecRowError checks that an error surfacing mid-iteration is
// not swallowed by the drain loop.
func TestSQLEngineExecRowError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	eng := NewFromDB("test", db, PostgresSleep)
	defer func() { _ = eng.Close() }()

	rows := sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2).RowError(1, errors.New("stream torn"))
	mock.ExpectQuery("SELECT n").WillReturnRows(rows)

	err = eng.Exec(context.Background(), "SELECT n FROM series")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream torn")
}

// TestSQLEnginePing checks both ping outcomes.
func TestSQLEnginePing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	eng := NewFromDB("test", db, PostgresSleep)
	defer func() { _ = eng.Close() }()

	mock.ExpectPing()
	require.NoError(t, eng.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	err = eng.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route to host")
}

// TestSQLEnginePoolStats checks the sql.DBStats mapping.
func TestSQLEnginePoolStats(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(7)
	eng := NewFromDB("test", db, MySQLSleep)
	defer func() { _ = eng.Close() }()

	stats := eng.PoolStats()
	assert.Equal(t, 7, stats.Max)
	assert.Zero(t, stats.InUse)
}

// TestSleepDialects checks the server-side sleep statements per engine.
func TestSleepDialects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(time.Duration) string
		d    time.Duration
		want string
	}{
		{"postgres subsecond", PostgresSleep, 500 * time.Millisecond, "SELECT pg_sleep(0.500)"},
		{"postgres mixed", PostgresSleep, 1500 * time.Millisecond, "SELECT pg_sleep(1.500)"},
		{"postgres tiny", PostgresSleep, 50 * time.Millisecond, "SELECT pg_sleep(0.050)"},
		{"mysql whole", MySQLSleep, 2 * time.Second, "SELECT SLEEP(2.000)"},
		{"mysql subsecond", MySQLSleep, 250 * time.Millisecond, "SELECT SLEEP(0.250)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fn(tt.d))
		})
	}
}

// TestKeywordDSN checks the libpq keyword/value rendering, especially quoting
// of token passwords that carry spaces, quotes, or backslashes.
func TestKeywordDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params auth.ConnectionParameters
		want   string
	}{
		{
			name: "plain values",
			params: auth.ConnectionParameters{
				Host:     "db.example.com",
				Port:     5432,
				Database: "bench",
				User:     "alice",
				Password: "secret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5432 dbname=bench user=alice password=secret sslmode=require",
		},
		{
			name: "password needs quoting",
			params: auth.ConnectionParameters{
				Host:     "db.example.com",
				Port:     5432,
				Database: "bench",
				User:     "svc@example.com",
				Password: `to ken's\`,
				SSLMode:  "require",
			},
			want: `host=db.example.com port=5432 dbname=bench user=svc@example.com password='to ken\'s\\' sslmode=require`,
		},
		{
			name: "empty password still present",
			params: auth.ConnectionParameters{
				Host:     "localhost",
				Port:     5433,
				Database: "bench",
				User:     "alice",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5433 dbname=bench user=alice password='' sslmode=disable",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, keywordDSN(tt.params))
		})
	}
}

// TestRotatingConnectorFetchFailure checks that a parameter fetch failure
// fails the connect without dialing anything.
func TestRotatingConnectorFetchFailure(t *testing.T) {
	t.Parallel()

	c := &rotatingConnector{params: func(context.Context) (auth.ConnectionParameters, error) {
		return auth.ConnectionParameters{}, errors.New("mint is down")
	}}

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh connection parameters")
	assert.Contains(t, err.Error(), "mint is down")
	assert.IsType(t, &pq.Driver{}, c.Driver())
}

// TestNewPostgresSQLNeedsParams checks the nil-source guard.
func TestNewPostgresSQLNeedsParams(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresSQL(nil, SQLConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter source")
}

// TestNewMySQLValidatesDSN checks eager DSN validation; a typo should fail at
// startup, not at first query.
func TestNewMySQLValidatesDSN(t *testing.T) {
	t.Parallel()

	_, err := NewMySQL("not a dsn at all", SQLConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql DSN")

	eng, err := NewMySQL("bench:pw@tcp(localhost:3306)/bench", SQLConfig{MaxOpen: 5})
	require.NoError(t, err)
	assert.Equal(t, "mysql", eng.Name())
	assert.Equal(t, "SELECT SLEEP(1.000)", eng.SleepQuery(time.Second))
	require.NoError(t, eng.Close())
}

// TestNewStaticPostgresValidatesDSN mirrors the MySQL check for lib/pq.
func TestNewStaticPostgresValidatesDSN(t *testing.T) {
	t.Parallel()

	_, err := NewStaticPostgres("host='unterminated", SQLConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres DSN")

	eng, err := NewStaticPostgres("host=localhost port=5432 dbname=bench sslmode=disable", SQLConfig{Name: "baseline"})
	require.NoError(t, err)
	assert.Equal(t, "baseline", eng.Name())
	require.NoError(t, eng.Close())
}
