package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/pkg/auth"
)

// ParamsFunc supplies current connection parameters. The rotation manager's
// ConnectionParams method satisfies it.
type ParamsFunc func(ctx context.Context) (auth.ConnectionParameters, error)

// PostgresConfig sizes the pgx pool. PoolSize is the steady-state connection
// count; MaxOverflow is the burst headroom on top of it.
type PostgresConfig struct {
	Name        string
	PoolSize    int
	MaxOverflow int
	PoolTimeout time.Duration
	PoolRecycle time.Duration
	Params      ParamsFunc
	Logger      *logging.Logger
}

// Postgres drives managed Postgres through a pgx pool. New physical
// connections fetch parameters from the rotation manager, so the pool keeps
// authenticating while credentials rotate underneath it.
type Postgres struct {
	name   string
	pool   *pgxpool.Pool
	logger *logging.Logger
}

// NewPostgres builds the pool and registers its stats collector. The initial
// parameter fetch is synchronous; a manager that cannot mint fails here, not
// mid-benchmark.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	name := cfg.Name
	if name == "" {
		name = "lakebase"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}

	poolCfg, err := buildPoolConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s pool: %w", name, err)
	}

	if err := prometheus.Register(NewPoolCollector(pool, name)); err != nil {
		logger.Debug("Pool metrics for %s already registered: %v", name, err)
	}

	logger.Debug("Engine %s ready: max_conns=%d min_conns=%d recycle=%s",
		name, poolCfg.MaxConns, poolCfg.MinConns, poolCfg.MaxConnLifetime)

	return &Postgres{name: name, pool: pool, logger: logger}, nil
}

// buildPoolConfig maps the pool knobs onto pgxpool and installs the
// BeforeConnect hook that injects current credentials.
func buildPoolConfig(ctx context.Context, cfg PostgresConfig) (*pgxpool.Config, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("postgres engine needs a connection parameter source")
	}

	seed, err := cfg.Params(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial connection parameters: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(seed.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}
	overflow := cfg.MaxOverflow
	if overflow < 0 {
		overflow = 0
	}
	poolCfg.MaxConns = int32(poolSize + overflow)
	poolCfg.MinConns = int32(poolSize)
	if cfg.PoolRecycle > 0 {
		poolCfg.MaxConnLifetime = cfg.PoolRecycle
	}
	if cfg.PoolTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.PoolTimeout
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = "lakebench"
	}

	// Credentials are read at connect time, not pool-build time: a connection
	// recycled an hour in still authenticates with a live token.
	fetch := cfg.Params
	poolCfg.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		current, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("refresh connection parameters: %w", err)
		}
		cc.Host = current.Host
		cc.Port = uint16(current.Port)
		cc.Database = current.Database
		cc.User = current.User
		cc.Password = string(current.Password)
		return nil
	}

	return poolCfg, nil
}

func (p *Postgres) Name() string { return p.name }

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Exec(ctx context.Context, query string, args ...interface{}) error {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func (p *Postgres) SleepQuery(d time.Duration) string {
	return PostgresSleep(d)
}

func (p *Postgres) PoolStats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		Max:   int(s.MaxConns()),
		Open:  int(s.TotalConns()),
		InUse: int(s.AcquiredConns()),
		Idle:  int(s.IdleConns()),
	}
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
