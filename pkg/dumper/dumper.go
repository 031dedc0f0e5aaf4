package dumper

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Dumper produces a dump into a directory and restores from one
type Dumper interface {
	Dump(ctx context.Context, destination, userOptions string) (Output, error)
	Restore(ctx context.Context, source, userOptions string) (Output, error)
}

// StreamDumper writes a dump to a byte stream instead of a directory
type StreamDumper interface {
	StreamDump(ctx context.Context, userOptions string) (io.ReadCloser, error)
}

// Config holds settings shared by the database dumpers
type Config struct {
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn"`
	PgpassFile  string `json:"pgpass_file" yaml:"pgpass_file"`
}

type constructor func(cfg Config, logger zerolog.Logger) Dumper

var dumpers = map[string]constructor{
	"postgres": func(cfg Config, logger zerolog.Logger) Dumper { return NewPostgres(cfg, logger) },
	"mysql":    func(cfg Config, logger zerolog.Logger) Dumper { return NewMySQL(logger) },
	"mongodb":  func(cfg Config, logger zerolog.Logger) Dumper { return NewMongoDB(logger) },
	"files":    func(cfg Config, logger zerolog.Logger) Dumper { return NewFiles(logger) },
}

// New returns the dumper registered under kind
func New(kind string, cfg Config, logger zerolog.Logger) (Dumper, error) {
	c, ok := dumpers[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown dumper %q (available: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return c(cfg, logger.With().Str("dumper", strings.ToLower(kind)).Logger()), nil
}

// Kinds lists the registered dumper names
func Kinds() []string {
	kinds := make([]string, 0, len(dumpers))
	for kind := range dumpers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// dumpFile resolves the file a restore reads: source itself when it is a
// file (a streamed dump), or name inside source when it is a directory.
func dumpFile(source, name string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("restore source: %w", err)
	}
	if !info.IsDir() {
		return source, nil
	}
	return filepath.Join(source, name), nil
}

// toolArgs splits the user options and appends the arguments the dumper controls
func toolArgs(userOptions string, own ...string) ([]string, error) {
	args, err := SplitArgs(userOptions)
	if err != nil {
		return nil, err
	}
	return append(args, own...), nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
