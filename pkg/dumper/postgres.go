package dumper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	postgresDumpFile = "dump.sql"
	preflightTimeout = 10 * time.Second
)

// Postgres dumps every database of a cluster with pg_dumpall and restores
// with psql
type Postgres struct {
	cfg    Config
	logger zerolog.Logger

	// DumpCommand and RestoreCommand override the tool binaries
	DumpCommand    string
	RestoreCommand string
}

var (
	_ Dumper       = (*Postgres)(nil)
	_ StreamDumper = (*Postgres)(nil)
)

func NewPostgres(cfg Config, logger zerolog.Logger) *Postgres {
	return &Postgres{cfg: cfg, logger: logger}
}

func (p *Postgres) Dump(ctx context.Context, destination, userOptions string) (Output, error) {
	env, err := p.prepare(ctx)
	if err != nil {
		return Output{}, err
	}

	args, err := toolArgs(userOptions, "--file", filepath.Join(destination, postgresDumpFile))
	if err != nil {
		return Output{}, err
	}

	return run(ctx, command{name: orDefault(p.DumpCommand, "pg_dumpall"), args: args, env: env})
}

func (p *Postgres) StreamDump(ctx context.Context, userOptions string) (io.ReadCloser, error) {
	env, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	args, err := toolArgs(userOptions)
	if err != nil {
		return nil, err
	}

	return stream(ctx, command{name: orDefault(p.DumpCommand, "pg_dumpall"), args: args, env: env})
}

func (p *Postgres) Restore(ctx context.Context, source, userOptions string) (Output, error) {
	env, err := p.prepare(ctx)
	if err != nil {
		return Output{}, err
	}

	file, err := dumpFile(source, postgresDumpFile)
	if err != nil {
		return Output{}, err
	}

	args, err := toolArgs(userOptions, "--file", file)
	if err != nil {
		return Output{}, err
	}

	return run(ctx, command{name: orDefault(p.RestoreCommand, "psql"), args: args, env: env})
}

// prepare checks the server answers and locates the password file
func (p *Postgres) prepare(ctx context.Context) ([]string, error) {
	if err := p.preflight(ctx); err != nil {
		return nil, err
	}

	pgpass, err := ResolvePgpassFile(p.cfg.PgpassFile)
	if errors.Is(err, ErrPgpassNotFound) {
		p.logger.Debug().Msg("no .pgpass file, relying on options and environment for credentials")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// FAIL FAST: libpq ignores a password file with loose permissions
	if err := ValidatePgpassPermissions(pgpass); err != nil {
		return nil, err
	}

	p.logger.Debug().Str("pgpass_path", pgpass).Msg("using .pgpass for authentication")
	p.checkPgpassEntry(pgpass)
	return []string{"PGPASSFILE=" + pgpass}, nil
}

// checkPgpassEntry logs whether the password file covers the configured DSN.
// A miss is only reported since the tools may get a password elsewhere.
func (p *Postgres) checkPgpassEntry(pgpass string) {
	if p.cfg.PostgresDSN == "" {
		return
	}

	conn, err := parseConnection(p.cfg.PostgresDSN)
	if err != nil {
		p.logger.Warn().Err(err).Msg("could not read connection from DSN, skipping .pgpass lookup")
		return
	}

	found, err := HasPgpassEntry(pgpass, conn.host, conn.port, conn.database, conn.user)
	if err != nil {
		p.logger.Warn().Err(err).Str("pgpass_path", pgpass).Msg("could not read .pgpass")
		return
	}

	event := p.logger.Debug()
	msg := "found .pgpass entry for DSN connection"
	if !found {
		event = p.logger.Warn()
		msg = "no .pgpass entry matches DSN connection"
	}
	event.
		Str("pgpass_path", pgpass).
		Str("host", conn.host).
		Str("port", conn.port).
		Str("database", conn.database).
		Str("user", conn.user).
		Msg(msg)
}

// preflight pings the server when a DSN is configured, so a wrong host or
// password fails before the dump tool starts
func (p *Postgres) preflight(ctx context.Context) error {
	if p.cfg.PostgresDSN == "" {
		return nil
	}

	db, err := sql.Open("postgres", p.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres preflight: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres preflight: failed to ping database: %w", err)
	}
	return nil
}
