package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/bucket_backuper/pkg/archive"
	"github.com/williamokano/bucket_backuper/pkg/dumper"
	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/metrics"
	"github.com/williamokano/bucket_backuper/pkg/rotation"
	"github.com/williamokano/bucket_backuper/pkg/storage"
	"github.com/williamokano/bucket_backuper/pkg/storage/memory"
)

var fixedNow = time.Date(2022, 3, 27, 22, 42, 12, 0, time.UTC)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	store   *memory.Store
	runner  *Runner
	tempDir string
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)
	store := memory.New(location.ProviderS3)
	tempDir := t.TempDir()

	return &fixture{
		store:   store,
		tempDir: tempDir,
		logs:    logs,
		runner: &Runner{
			Client:  storage.NewObjectClient(store, logger),
			Logger:  logger,
			Metrics: metrics.NewCollector(metrics.Config{}),
			TempDir: tempDir,
			Now:     func() time.Time { return fixedNow },
		},
	}
}

// assertTempDirClean checks that nothing from the call is left behind
func (f *fixture) assertTempDirClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func sqlDump(content string) DumpFunc {
	return func(ctx context.Context, destination, userOptions string) (dumper.Output, error) {
		err := os.WriteFile(filepath.Join(destination, "dump.sql"), []byte(content), 0o600)
		return dumper.Output{Stdout: "dumped\n", Stderr: "notice: " + userOptions + "\n"}, err
	}
}

func TestBackupOnce_UploadsArchiveToFolder(t *testing.T) {
	f := newFixture(t)

	result, err := f.runner.BackupOnce(context.Background(), sqlDump("select 1;"), "s3://bucket/daily/", Options{UserOptions: "--clean"})
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/daily/backup-20220327224212.tar.bz2", result.Location)
	assert.Positive(t, result.Size)

	data, ok := f.store.Get("bucket", "daily/backup-20220327224212.tar.bz2")
	require.True(t, ok)
	assert.Equal(t, int64(len(data)), result.Size)

	f.assertTempDirClean(t)
	assert.Contains(t, f.logs.String(), `"stream":"stdout","message":"dumped"`)
	assert.Contains(t, f.logs.String(), `"message":"notice: --clean"`)
	assert.Contains(t, f.logs.String(), "backup completed")

	expected := fmt.Sprintf(`
# HELP bucket_backuper_artifact_size_bytes Size of the last uploaded artifact
# TYPE bucket_backuper_artifact_size_bytes gauge
bucket_backuper_artifact_size_bytes %d
`, result.Size)
	assert.NoError(t, testutil.GatherAndCompare(f.runner.Metrics.Registry(),
		strings.NewReader(expected), "bucket_backuper_artifact_size_bytes"))
}

func TestBackupOnce_ExplicitObjectName(t *testing.T) {
	f := newFixture(t)

	result, err := f.runner.BackupOnce(context.Background(), sqlDump("x"), "s3://bucket/latest.tar.bz2", Options{})
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/latest.tar.bz2", result.Location)
	_, ok := f.store.Get("bucket", "latest.tar.bz2")
	assert.True(t, ok)
}

func TestBackupOnce_ObjectNameNeedsExtension(t *testing.T) {
	for _, tc := range []struct {
		destination string
		opts        Options
	}{
		{"s3://bucket/nightly", Options{}},
		{"s3://bucket/nightly.bz2", Options{}},
		{"s3://bucket/nightly.tar.bz2", Options{Format: archive.FormatZstd}},
		{"s3://bucket/db/nightly.tar", Options{Streaming: true}},
	} {
		t.Run(tc.destination, func(t *testing.T) {
			f := newFixture(t)
			dumped := false
			dump := func(ctx context.Context, dumpPath, userOptions string) (dumper.Output, error) {
				dumped = true
				return dumper.Output{}, os.WriteFile(filepath.Join(dumpPath, "dump.sql"), []byte("x"), 0o600)
			}

			_, err := f.runner.BackupOnce(context.Background(), dump, tc.destination, tc.opts)
			var uriErr *location.InvalidURIError
			require.ErrorAs(t, err, &uriErr)
			assert.Equal(t, tc.destination, uriErr.URI)
			assert.False(t, dumped)
			assert.Empty(t, f.store.Keys("bucket"))
		})
	}
}

func TestBackupOnce_ExplicitObjectNameRestores(t *testing.T) {
	f := newFixture(t)

	backup, err := f.runner.BackupOnce(context.Background(), sqlDump("select 4;"), "s3://bucket/db/Latest.TAR.GZ", Options{Format: archive.FormatGzip})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/db/Latest.TAR.GZ", backup.Location)

	var restored string
	restore := func(ctx context.Context, source, userOptions string) (dumper.Output, error) {
		data, err := os.ReadFile(filepath.Join(source, "dump.sql"))
		restored = string(data)
		return dumper.Output{}, err
	}
	_, err = f.runner.RestoreOnce(context.Background(), restore, backup.Location, Options{})
	require.NoError(t, err)
	assert.Equal(t, "select 4;", restored)
}

func TestBackupOnce_StreamingUpload(t *testing.T) {
	f := newFixture(t)

	opts := Options{Prefix: "nightly", Format: archive.FormatGzip, Streaming: true}
	result, err := f.runner.BackupOnce(context.Background(), sqlDump("select 2;"), "s3://bucket/", opts)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/nightly-20220327224212.tar.gz", result.Location)
	data, ok := f.store.Get("bucket", "nightly-20220327224212.tar.gz")
	require.True(t, ok)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Zero(t, f.store.Calls("Copy"))
	f.assertTempDirClean(t)
}

func TestBackupOnce_DumpFailure(t *testing.T) {
	f := newFixture(t)
	notifier := &mockNotifier{}
	f.runner.HealthCheck = notifier

	failing := func(ctx context.Context, destination, userOptions string) (dumper.Output, error) {
		return dumper.Output{}, &dumper.SubprocessError{
			Command:  "pg_dumpall",
			ExitCode: 1,
			Stderr:   "connection refused\n",
			Err:      errors.New("exit status 1"),
		}
	}

	_, err := f.runner.BackupOnce(context.Background(), failing, "s3://bucket/", Options{})
	require.Error(t, err)

	var subErr *dumper.SubprocessError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 1, subErr.ExitCode)

	assert.Zero(t, f.store.Calls("Upload"))
	assert.Empty(t, f.store.Keys("bucket"))
	f.assertTempDirClean(t)
	notifier.AssertNotCalled(t, "Ping", mock.Anything)

	// the tool's stderr is logged even though the dump returned no output
	assert.Contains(t, f.logs.String(), `"stream":"stderr","message":"connection refused"`)
	assert.Equal(t, 1, strings.Count(f.logs.String(), "backup failed"))
}

func TestBackupOnce_HealthCheck(t *testing.T) {
	t.Run("pinged after success", func(t *testing.T) {
		f := newFixture(t)
		notifier := &mockNotifier{}
		notifier.On("Ping", mock.Anything).Return(nil).Once()
		f.runner.HealthCheck = notifier

		_, err := f.runner.BackupOnce(context.Background(), sqlDump("x"), "s3://bucket/", Options{})
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("failure does not fail the backup", func(t *testing.T) {
		f := newFixture(t)
		notifier := &mockNotifier{}
		notifier.On("Ping", mock.Anything).Return(errors.New("503")).Once()
		f.runner.HealthCheck = notifier

		_, err := f.runner.BackupOnce(context.Background(), sqlDump("x"), "s3://bucket/", Options{})
		require.NoError(t, err)
		notifier.AssertExpectations(t)
		assert.Contains(t, f.logs.String(), "health check failed")
	})
}

func TestBackupOnce_RejectsLocalDestination(t *testing.T) {
	f := newFixture(t)
	called := false
	dump := func(ctx context.Context, destination, userOptions string) (dumper.Output, error) {
		called = true
		return dumper.Output{}, nil
	}

	_, err := f.runner.BackupOnce(context.Background(), dump, "/var/backups", Options{})
	assert.ErrorIs(t, err, location.ErrNotRemote)
	assert.False(t, called)
}

func TestBackupOnce_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	dump := func(ctx context.Context, destination, userOptions string) (dumper.Output, error) {
		cancel()
		return dumper.Output{}, os.WriteFile(filepath.Join(destination, "dump.sql"), []byte("x"), 0o600)
	}

	_, err := f.runner.BackupOnce(ctx, dump, "s3://bucket/", Options{})
	require.Error(t, err)
	assert.Empty(t, f.store.Keys("bucket"))
	f.assertTempDirClean(t)
}

type fakeStream struct {
	io.Reader
	closeErr error
	closed   bool
}

func (s *fakeStream) Close() error {
	s.closed = true
	return s.closeErr
}

func TestBackupStreamOnce(t *testing.T) {
	f := newFixture(t)
	source := &fakeStream{Reader: strings.NewReader("CREATE TABLE t();")}

	dump := func(ctx context.Context, userOptions string) (io.ReadCloser, error) {
		return source, nil
	}

	result, err := f.runner.BackupStreamOnce(context.Background(), dump, "s3://bucket/db/", Options{Format: archive.FormatGzip})
	require.NoError(t, err)
	assert.True(t, source.closed)

	assert.Equal(t, "s3://bucket/db/backup-20220327224212.gz", result.Location)
	data, ok := f.store.Get("bucket", "db/backup-20220327224212.gz")
	require.True(t, ok)

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t();", string(plain))
}

func TestBackupStreamOnce_ProducerFailure(t *testing.T) {
	f := newFixture(t)
	exitErr := &dumper.SubprocessError{
		Command:  "mysqldump",
		ExitCode: 2,
		Stderr:   "mysqldump: Got error: 1045: access denied for user\n",
		Err:      errors.New("exit status 2"),
	}
	source := &fakeStream{Reader: strings.NewReader("partial"), closeErr: exitErr}

	dump := func(ctx context.Context, userOptions string) (io.ReadCloser, error) {
		return source, nil
	}

	_, err := f.runner.BackupStreamOnce(context.Background(), dump, "s3://bucket/", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, exitErr)
	assert.Empty(t, f.store.Keys("bucket"))
	assert.Contains(t, f.logs.String(), `"stream":"stderr","message":"mysqldump: Got error: 1045: access denied for user"`)
}

func TestBackupStreamOnce_ObjectNameNeedsExtension(t *testing.T) {
	f := newFixture(t)
	opened := false
	dump := func(ctx context.Context, userOptions string) (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("data")), nil
	}

	for _, destination := range []string{"s3://bucket/nightly", "s3://bucket/nightly.bz2", "s3://bucket/nightly.tar.gz"} {
		_, err := f.runner.BackupStreamOnce(context.Background(), dump, destination, Options{Format: archive.FormatGzip})
		var uriErr *location.InvalidURIError
		require.ErrorAs(t, err, &uriErr, destination)
		assert.Equal(t, destination, uriErr.URI)
	}
	assert.False(t, opened)
	assert.Empty(t, f.store.Keys("bucket"))

	result, err := f.runner.BackupStreamOnce(context.Background(), dump, "s3://bucket/nightly.gz", Options{Format: archive.FormatGzip})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/nightly.gz", result.Location)
	assert.Equal(t, []string{"nightly.gz"}, f.store.Keys("bucket"))
}

func TestRestoreOnce_RoundTrip(t *testing.T) {
	for _, format := range []archive.Format{archive.FormatBzip2, archive.FormatGzip, archive.FormatZstd} {
		t.Run(string(format), func(t *testing.T) {
			f := newFixture(t)

			backup, err := f.runner.BackupOnce(context.Background(), sqlDump("select 3;"), "s3://bucket/", Options{Format: format})
			require.NoError(t, err)

			var restored string
			restore := func(ctx context.Context, source, userOptions string) (dumper.Output, error) {
				assert.Equal(t, "--single-transaction", userOptions)
				data, err := os.ReadFile(filepath.Join(source, "dump.sql"))
				restored = string(data)
				return dumper.Output{Stdout: "restored\n"}, err
			}

			result, err := f.runner.RestoreOnce(context.Background(), restore, backup.Location, Options{UserOptions: "--single-transaction"})
			require.NoError(t, err)

			assert.Equal(t, "select 3;", restored)
			assert.Equal(t, backup.Location, result.Location)
			assert.Equal(t, backup.Size, result.Size)
			f.assertTempDirClean(t)
		})
	}
}

func TestRestoreOnce_StreamedArtifact(t *testing.T) {
	f := newFixture(t)
	dump := func(ctx context.Context, userOptions string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("db contents")), nil
	}

	backup, err := f.runner.BackupStreamOnce(context.Background(), dump, "s3://bucket/", Options{Format: archive.FormatZstd})
	require.NoError(t, err)

	var restored string
	restore := func(ctx context.Context, source, userOptions string) (dumper.Output, error) {
		data, err := os.ReadFile(source)
		restored = string(data)
		return dumper.Output{}, err
	}

	_, err = f.runner.RestoreOnce(context.Background(), restore, backup.Location, Options{})
	require.NoError(t, err)
	assert.Equal(t, "db contents", restored)
}

func TestRestoreOnce_UnsupportedFormatSkipsDownload(t *testing.T) {
	f := newFixture(t)
	f.store.Put("bucket", "backup-20220327224212.sql.xz", []byte("data"))

	restore := func(ctx context.Context, source, userOptions string) (dumper.Output, error) {
		t.Fatal("restore must not run")
		return dumper.Output{}, nil
	}

	_, err := f.runner.RestoreOnce(context.Background(), restore, "s3://bucket/backup-20220327224212.sql.xz", Options{})

	var unsupported *archive.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Zero(t, f.store.Calls("Download"))
	f.assertTempDirClean(t)
}

func TestRestoreOnce_RejectsFolder(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.RestoreOnce(context.Background(), nil, "s3://bucket/daily/", Options{})

	var invalid *location.InvalidURIError
	assert.ErrorAs(t, err, &invalid)
}

func TestRestoreOnce_RestoreFailure(t *testing.T) {
	f := newFixture(t)
	backup, err := f.runner.BackupOnce(context.Background(), sqlDump("x"), "s3://bucket/", Options{})
	require.NoError(t, err)

	restore := func(ctx context.Context, source, userOptions string) (dumper.Output, error) {
		return dumper.Output{Stderr: "ERROR: relation exists\n"}, &dumper.SubprocessError{Command: "psql", ExitCode: 3}
	}

	_, err = f.runner.RestoreOnce(context.Background(), restore, backup.Location, Options{})
	require.Error(t, err)
	assert.Contains(t, f.logs.String(), "ERROR: relation exists")
	assert.Contains(t, f.logs.String(), "restore failed")
	f.assertTempDirClean(t)
}

func TestRunnerListFiles(t *testing.T) {
	f := newFixture(t)
	f.store.Put("bucket", "daily/backup-1.tar.bz2", []byte("1"))
	f.store.Put("bucket", "daily/backup-2.tar.bz2", []byte("2"))
	f.store.Put("bucket", "weekly/backup-3.tar.bz2", []byte("3"))

	files, err := f.runner.ListFiles(context.Background(), "s3://bucket/daily/")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunnerPrune(t *testing.T) {
	f := newFixture(t)
	f.store.Put("bucket", "backups/backup-20220326010000.tar.bz2", []byte("old"))
	f.store.Put("bucket", "backups/backup-20220327224212.tar.bz2", []byte("today"))

	result, err := f.runner.Prune(context.Background(), "s3://bucket/backups/", rotation.Options{
		DeleteDivide:         1,
		DeleteTargetDaysLeft: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://bucket/backups/backup-20220326010000.tar.bz2"}, result.Deleted)
	assert.Equal(t, []string{"backups/backup-20220327224212.tar.bz2"}, f.store.Keys("bucket"))

	expected := `
# HELP bucket_backuper_pruned_objects_total Objects deleted by prune
# TYPE bucket_backuper_pruned_objects_total counter
bucket_backuper_pruned_objects_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.runner.Metrics.Registry(),
		strings.NewReader(expected), "bucket_backuper_pruned_objects_total"))
}
