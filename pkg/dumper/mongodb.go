package dumper

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
)

const mongoDumpFile = "dump.archive"

// MongoDB dumps with mongodump --archive and restores with mongorestore
type MongoDB struct {
	logger zerolog.Logger

	DumpCommand    string
	RestoreCommand string
}

var (
	_ Dumper       = (*MongoDB)(nil)
	_ StreamDumper = (*MongoDB)(nil)
)

func NewMongoDB(logger zerolog.Logger) *MongoDB {
	return &MongoDB{logger: logger}
}

func (m *MongoDB) Dump(ctx context.Context, destination, userOptions string) (Output, error) {
	args, err := toolArgs(userOptions, "--archive="+filepath.Join(destination, mongoDumpFile))
	if err != nil {
		return Output{}, err
	}
	return run(ctx, command{name: orDefault(m.DumpCommand, "mongodump"), args: args})
}

// StreamDump writes the archive to stdout
func (m *MongoDB) StreamDump(ctx context.Context, userOptions string) (io.ReadCloser, error) {
	args, err := toolArgs(userOptions, "--archive")
	if err != nil {
		return nil, err
	}
	return stream(ctx, command{name: orDefault(m.DumpCommand, "mongodump"), args: args})
}

func (m *MongoDB) Restore(ctx context.Context, source, userOptions string) (Output, error) {
	file, err := dumpFile(source, mongoDumpFile)
	if err != nil {
		return Output{}, err
	}

	args, err := toolArgs(userOptions, "--archive="+file)
	if err != nil {
		return Output{}, err
	}
	return run(ctx, command{name: orDefault(m.RestoreCommand, "mongorestore"), args: args})
}
