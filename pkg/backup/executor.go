// Package backup sequences dump, compress and upload for a backup, and
// download, expand and restore for a restore. Each call owns a temporary
// directory that is removed when the call returns, even on interrupt.
package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/bucket_backuper/pkg/archive"
	"github.com/williamokano/bucket_backuper/pkg/dumper"
	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/metrics"
	"github.com/williamokano/bucket_backuper/pkg/rotation"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// DumpFunc writes a dump into destination, a directory created for it
type DumpFunc func(ctx context.Context, destination, userOptions string) (dumper.Output, error)

// RestoreFunc restores from source, the expanded artifact
type RestoreFunc func(ctx context.Context, source, userOptions string) (dumper.Output, error)

// StreamDumpFunc produces a dump as a byte stream. Closing the stream
// reports whether the producer succeeded.
type StreamDumpFunc func(ctx context.Context, userOptions string) (io.ReadCloser, error)

// Notifier is told about successful backups
type Notifier interface {
	Ping(ctx context.Context) error
}

// Options configures a single backup or restore
type Options struct {
	// UserOptions is forwarded untouched to the dump or restore tool
	UserOptions string
	// Prefix names backup objects, "backup" when empty
	Prefix string
	// Format selects the compressor, bzip2 when empty
	Format archive.Format
	// Streaming uploads the archive while it is produced instead of
	// writing it to the temp directory first
	Streaming bool
}

// Result represents the outcome of a backup or restore
type Result struct {
	Location string
	Size     int64
	Duration time.Duration
}

// Runner executes backups and restores against one storage client
type Runner struct {
	Client      storage.Client
	Logger      zerolog.Logger
	Metrics     *metrics.Collector
	HealthCheck Notifier
	TempDir     string
	Now         func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// BackupOnce dumps, compresses and uploads to destinationURI. A folder
// destination receives prefix-YYYYMMDDhhmmss plus the archive extension;
// any other destination is used as the object name and must end in the
// archive extension.
func (r *Runner) BackupOnce(ctx context.Context, dump DumpFunc, destinationURI string, opts Options) (Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := r.backup(ctx, dump, destinationURI, opts)
	result.Duration = time.Since(start)

	r.finish(ctx, "backup", result, err)
	return result, err
}

func (r *Runner) backup(ctx context.Context, dump DumpFunc, destinationURI string, opts Options) (Result, error) {
	format := opts.Format
	if format == "" {
		format = archive.DefaultFormat
	}
	stem, err := checkDestination(destinationURI, format.ArchiveExtension())
	if err != nil {
		return Result{}, err
	}

	dir, cleanup, err := r.workspace()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	// the tarball's top entry must match the object's stem for restore
	name := stem
	if name == "" {
		name = rotation.GenerateBackupName(opts.Prefix, r.now())
	}
	dumpPath := filepath.Join(dir, name)
	if err := os.Mkdir(dumpPath, 0o700); err != nil {
		return Result{}, fmt.Errorf("failed to create dump directory: %w", err)
	}

	log := r.Logger.With().Str("operation", "backup").Str("destination", destinationURI).Logger()
	log.Info().Str("dump_path", dumpPath).Msg("starting dump")

	out, err := dump(ctx, dumpPath, opts.UserOptions)
	logOutput(log, out, err)
	if err != nil {
		return Result{}, fmt.Errorf("dump failed: %w", err)
	}

	if opts.Streaming {
		rc, artifactName, err := archive.CompressStream(ctx, dumpPath, format)
		if err != nil {
			return Result{}, err
		}
		return r.uploadStream(ctx, rc, artifactName, destinationURI)
	}

	artifact, err := archive.Compress(ctx, dumpPath, format)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Stat(artifact.Path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat archive: %w", err)
	}
	log.Info().
		Str("artifact", filepath.Base(artifact.Path)).
		Int64("size_bytes", info.Size()).
		Msg("archive created, uploading")

	if err := r.Client.CopyFile(ctx, artifact.Path, destinationURI); err != nil {
		return Result{}, err
	}

	return Result{
		Location: objectLocation(destinationURI, filepath.Base(artifact.Path)),
		Size:     info.Size(),
	}, nil
}

// BackupStreamOnce uploads a streamed dump compressed as a single file
// (prefix-YYYYMMDDhhmmss.bz2) without touching the local disk
func (r *Runner) BackupStreamOnce(ctx context.Context, dump StreamDumpFunc, destinationURI string, opts Options) (Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := r.backupStream(ctx, dump, destinationURI, opts)
	result.Duration = time.Since(start)

	r.finish(ctx, "backup", result, err)
	return result, err
}

func (r *Runner) backupStream(ctx context.Context, dump StreamDumpFunc, destinationURI string, opts Options) (Result, error) {
	format := opts.Format
	if format == "" {
		format = archive.DefaultFormat
	}
	stem, err := checkDestination(destinationURI, format.Extension())
	if err != nil {
		return Result{}, err
	}
	if strings.HasSuffix(strings.ToLower(stem), ".tar") {
		return Result{}, &location.InvalidURIError{URI: destinationURI, Reason: "a streamed dump is not a tarball"}
	}

	log := r.Logger.With().Str("operation", "backup").Str("destination", destinationURI).Logger()

	source, err := dump(ctx, opts.UserOptions)
	if err != nil {
		return Result{}, fmt.Errorf("dump failed: %w", err)
	}

	compressed, err := archive.CompressReader(source, format)
	if err != nil {
		_ = source.Close()
		return Result{}, err
	}

	// the dump is closed after the compressor so its exit status is reported
	rc := &chainedCloser{Reader: compressed, closers: []io.Closer{compressed, source}}
	name := rotation.GenerateBackupName(opts.Prefix, r.now()) + format.Extension()

	result, err := r.uploadStream(ctx, rc, name, destinationURI)
	if err != nil {
		// the dump output only surfaces through its exit error here
		logOutput(log, dumper.Output{}, err)
	}
	return result, err
}

// RestoreOnce downloads sourceURI, expands it and hands the result to restore
func (r *Runner) RestoreOnce(ctx context.Context, restore RestoreFunc, sourceURI string, opts Options) (Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := r.restore(ctx, restore, sourceURI, opts)
	result.Duration = time.Since(start)

	r.finish(ctx, "restore", result, err)
	return result, err
}

func (r *Runner) restore(ctx context.Context, restore RestoreFunc, sourceURI string, opts Options) (Result, error) {
	src, err := location.ParseRemote(sourceURI)
	if err != nil {
		return Result{}, err
	}
	if src.IsFolder() {
		return Result{}, &location.InvalidURIError{URI: sourceURI, Reason: "restore needs an object, not a folder"}
	}

	dir, cleanup, err := r.workspace()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	local := filepath.Join(dir, src.Base())

	// reject unknown formats before downloading anything
	if _, err := archive.ParseChain(local); err != nil {
		return Result{}, err
	}

	log := r.Logger.With().Str("operation", "restore").Str("source", sourceURI).Logger()

	if err := r.Client.CopyFile(ctx, sourceURI, local); err != nil {
		return Result{}, err
	}

	info, err := os.Stat(local)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat download: %w", err)
	}

	expanded, err := archive.Expand(ctx, local)
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("expanded_path", expanded).Msg("artifact expanded, starting restore")

	out, err := restore(ctx, expanded, opts.UserOptions)
	logOutput(log, out, err)
	if err != nil {
		return Result{}, fmt.Errorf("restore failed: %w", err)
	}

	return Result{Location: sourceURI, Size: info.Size()}, nil
}

// ListFiles lists uri with the client's default options unless overridden
func (r *Runner) ListFiles(ctx context.Context, uri string, opts ...storage.ListOption) ([]string, error) {
	files, err := r.Client.ListFiles(ctx, uri, opts...)
	if err != nil {
		r.Logger.Error().Err(err).Str("uri", uri).Msg("list failed")
		return nil, err
	}
	return files, nil
}

// Prune applies the retention policy to uri
func (r *Runner) Prune(ctx context.Context, uri string, opts rotation.Options) (rotation.Result, error) {
	start := time.Now()
	if opts.Now.IsZero() {
		opts.Now = r.now()
	}

	result, err := rotation.Prune(ctx, r.Client, uri, opts, r.Logger)
	if r.Metrics != nil {
		r.Metrics.RecordPruned(len(result.Deleted))
	}
	r.finish(ctx, "prune", Result{Location: uri, Duration: time.Since(start)}, err)

	return result, err
}

// finish is the single place where an operation's outcome is logged. A
// successful backup pings the health check; metrics are pushed either way.
// Neither of the two can fail the operation.
func (r *Runner) finish(ctx context.Context, operation string, result Result, err error) {
	log := r.Logger.With().Str("operation", operation).Logger()

	if err != nil {
		log.Error().
			Err(err).
			Dur("duration", result.Duration).
			Msgf("%s failed", operation)
	} else {
		log.Info().
			Str("location", result.Location).
			Int64("size_bytes", result.Size).
			Dur("duration", result.Duration).
			Msgf("%s completed", operation)
	}

	if err == nil && operation == "backup" && r.HealthCheck != nil {
		if pingErr := r.HealthCheck.Ping(ctx); pingErr != nil {
			log.Warn().Err(pingErr).Msg("health check failed, backup is still successful")
		}
	}

	if r.Metrics == nil {
		return
	}
	r.Metrics.RecordOperation(operation, result.Duration, err == nil)
	if err == nil && result.Size > 0 && operation == "backup" {
		r.Metrics.RecordArtifactSize(result.Size)
	}
	if pushErr := r.Metrics.Push(context.WithoutCancel(ctx)); pushErr != nil {
		log.Warn().Err(pushErr).Msg("failed to push metrics")
	}
}

// workspace creates the call's temp directory and its cleanup
func (r *Runner) workspace() (string, func(), error) {
	base := r.TempDir
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	dir, err := os.MkdirTemp(base, "bucket_backuper-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			r.Logger.Warn().Err(err).Str("temp_dir", dir).Msg("failed to remove temp directory")
			return
		}
		r.Logger.Debug().Str("temp_dir", dir).Msg("removed temp directory")
	}
	return dir, cleanup, nil
}

// logOutput writes a tool's output to the log line by line. When the tool
// failed without returning its output, the output carried by the error is used.
func logOutput(log zerolog.Logger, out dumper.Output, err error) {
	var subErr *dumper.SubprocessError
	if out == (dumper.Output{}) && errors.As(err, &subErr) {
		out = subErr.Output()
	}

	logLines(log, "stdout", out.Stdout)
	logLines(log, "stderr", out.Stderr)
}

func logLines(log zerolog.Logger, stream, text string) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Info().Str("stream", stream).Msg(scanner.Text())
	}
}

// checkDestination rejects anything but a bucket address. An explicit object
// name must end in ext since restore picks the decompressor from it; its stem
// is returned. A folder yields an empty stem.
func checkDestination(destination, ext string) (string, error) {
	loc, err := location.ParseRemote(destination)
	if err != nil {
		return "", err
	}
	if loc.IsFolder() {
		return "", nil
	}

	base := loc.Base()
	if len(base) <= len(ext) || !strings.EqualFold(base[len(base)-len(ext):], ext) {
		return "", &location.InvalidURIError{
			URI:    destination,
			Reason: fmt.Sprintf("object name must be <name>%s", ext),
		}
	}
	return base[:len(base)-len(ext)], nil
}

// objectLocation is where CopyFile or UploadStream puts name for destination
func objectLocation(destination, name string) string {
	loc, err := location.Parse(destination)
	if err != nil || !loc.IsFolder() {
		return destination
	}
	return loc.Join(name).String()
}
