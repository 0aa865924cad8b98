package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/systmms/lakebench/pkg/auth"
)

// SQLConfig sizes a database/sql pool.
type SQLConfig struct {
	Name            string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// SQLEngine drives a database/sql pool. The comparison engines share it; only
// the driver, the DSN, and the sleep dialect differ.
type SQLEngine struct {
	name  string
	db    *sql.DB
	sleep func(time.Duration) string
}

// NewPostgresSQL drives managed Postgres through database/sql and lib/pq.
// Like the pgx engine, every new physical connection fetches parameters from
// the rotation manager.
func NewPostgresSQL(params ParamsFunc, cfg SQLConfig) (*SQLEngine, error) {
	if params == nil {
		return nil, fmt.Errorf("postgres-sql engine needs a connection parameter source")
	}
	db := sql.OpenDB(&rotatingConnector{params: params})
	applyPoolKnobs(db, cfg)
	return &SQLEngine{
		name:  nameOr(cfg.Name, "postgres-sql"),
		db:    db,
		sleep: PostgresSleep,
	}, nil
}

// NewStaticPostgres connects to any Postgres from a fixed DSN, the baseline
// for comparison runs.
func NewStaticPostgres(dsn string, cfg SQLConfig) (*SQLEngine, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres DSN: %w", err)
	}
	db := sql.OpenDB(connector)
	applyPoolKnobs(db, cfg)
	return &SQLEngine{
		name:  nameOr(cfg.Name, "postgres"),
		db:    db,
		sleep: PostgresSleep,
	}, nil
}

// NewMySQL connects the MySQL comparison engine from a fixed DSN in
// go-sql-driver form (user:pass@tcp(host:port)/db).
func NewMySQL(dsn string, cfg SQLConfig) (*SQLEngine, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("mysql DSN: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	applyPoolKnobs(db, cfg)
	return &SQLEngine{
		name:  nameOr(cfg.Name, "mysql"),
		db:    db,
		sleep: MySQLSleep,
	}, nil
}

// NewFromDB wraps an existing handle. Tests drive engines through it with
// sqlmock.
func NewFromDB(name string, db *sql.DB, sleep func(time.Duration) string) *SQLEngine {
	return &SQLEngine{name: name, db: db, sleep: sleep}
}

func applyPoolKnobs(db *sql.DB, cfg SQLConfig) {
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func nameOr(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

func (e *SQLEngine) Name() string { return e.name }

func (e *SQLEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *SQLEngine) Exec(ctx context.Context, query string, args ...interface{}) error {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func (e *SQLEngine) SleepQuery(d time.Duration) string {
	return e.sleep(d)
}

func (e *SQLEngine) PoolStats() PoolStats {
	s := e.db.Stats()
	return PoolStats{
		Max:   s.MaxOpenConnections,
		Open:  s.OpenConnections,
		InUse: s.InUse,
		Idle:  s.Idle,
	}
}

func (e *SQLEngine) Close() error {
	return e.db.Close()
}

// rotatingConnector dials lib/pq with parameters fetched at connect time, so
// recycled connections pick up rotated credentials exactly like the pgx pool.
type rotatingConnector struct {
	params ParamsFunc
}

func (c *rotatingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	current, err := c.params(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh connection parameters: %w", err)
	}
	inner, err := pq.NewConnector(keywordDSN(current))
	if err != nil {
		return nil, err
	}
	return inner.Connect(ctx)
}

func (c *rotatingConnector) Driver() driver.Driver {
	return &pq.Driver{}
}

// keywordDSN renders libpq keyword/value form; unlike the URL form it needs
// no percent-escaping of token passwords.
func keywordDSN(p auth.ConnectionParameters) string {
	parts := []string{
		"host=" + pqQuote(p.Host),
		fmt.Sprintf("port=%d", p.Port),
		"dbname=" + pqQuote(p.Database),
		"user=" + pqQuote(p.User),
		"password=" + pqQuote(string(p.Password)),
		"sslmode=" + pqQuote(p.SSLMode),
	}
	return strings.Join(parts, " ")
}

// pqQuote single-quotes a libpq value when it contains characters the
// keyword/value parser would split on.
func pqQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
