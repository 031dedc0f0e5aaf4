package dumper

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const mysqlDumpFile = "dump.sql"

// MySQL dumps with mysqldump --all-databases and restores by feeding the
// dump to the mysql client
type MySQL struct {
	logger zerolog.Logger

	DumpCommand    string
	RestoreCommand string
}

var (
	_ Dumper       = (*MySQL)(nil)
	_ StreamDumper = (*MySQL)(nil)
)

func NewMySQL(logger zerolog.Logger) *MySQL {
	return &MySQL{logger: logger}
}

func (m *MySQL) Dump(ctx context.Context, destination, userOptions string) (Output, error) {
	args, err := toolArgs(userOptions, "--all-databases", "--result-file="+filepath.Join(destination, mysqlDumpFile))
	if err != nil {
		return Output{}, err
	}
	return run(ctx, command{name: orDefault(m.DumpCommand, "mysqldump"), args: args})
}

func (m *MySQL) StreamDump(ctx context.Context, userOptions string) (io.ReadCloser, error) {
	args, err := toolArgs(userOptions, "--all-databases")
	if err != nil {
		return nil, err
	}
	return stream(ctx, command{name: orDefault(m.DumpCommand, "mysqldump"), args: args})
}

func (m *MySQL) Restore(ctx context.Context, source, userOptions string) (Output, error) {
	file, err := dumpFile(source, mysqlDumpFile)
	if err != nil {
		return Output{}, err
	}

	f, err := os.Open(file)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()

	args, err := toolArgs(userOptions)
	if err != nil {
		return Output{}, err
	}
	return run(ctx, command{name: orDefault(m.RestoreCommand, "mysql"), args: args, stdin: f})
}
