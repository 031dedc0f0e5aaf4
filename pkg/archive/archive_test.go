package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates a small directory tree and returns its root
func makeTree(t *testing.T, parent, name string) string {
	t.Helper()
	root := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dump.sql"), []byte("CREATE TABLE t (id int);\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "deeper", "b.txt"), bytes.Repeat([]byte("b"), 64<<10), 0o600))
	return root
}

// listTree returns every path below root, relative and slash separated
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var names []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

func TestCompressExpandRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatBzip2, FormatGzip, FormatZstd} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			source := makeTree(t, t.TempDir(), "backup-20220327224212")

			artifact, err := Compress(ctx, source, format)
			require.NoError(t, err)
			assert.Equal(t, source+".tar."+string(format), artifact.Path)
			assert.Equal(t, []string{"." + string(format), ".tar"}, artifact.Extensions)
			assert.Equal(t, source, artifact.Stem())

			// expand somewhere else so the original tree cannot be mistaken for the result
			restoreDir := t.TempDir()
			moved := filepath.Join(restoreDir, filepath.Base(artifact.Path))
			require.NoError(t, os.Rename(artifact.Path, moved))

			expanded, err := Expand(ctx, moved)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(restoreDir, "backup-20220327224212"), expanded)
			assert.Equal(t, listTree(t, source), listTree(t, expanded))

			content, err := os.ReadFile(filepath.Join(expanded, "nested", "deeper", "b.txt"))
			require.NoError(t, err)
			assert.Len(t, content, 64<<10)

			// the intermediate .tar is removed, the downloaded artifact is kept
			_, err = os.Stat(filepath.Join(restoreDir, "backup-20220327224212.tar"))
			assert.True(t, os.IsNotExist(err))
			_, err = os.Stat(moved)
			assert.NoError(t, err)
		})
	}
}

func TestCompressSingleFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "dump")
	require.NoError(t, os.WriteFile(source, []byte("payload"), 0o644))

	artifact, err := Compress(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, source+".tar.bz2", artifact.Path)

	require.NoError(t, os.Remove(source))
	expanded, err := Expand(context.Background(), artifact.Path)
	require.NoError(t, err)

	content, err := os.ReadFile(expanded)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestCompressMissingSource(t *testing.T) {
	_, err := Compress(context.Background(), filepath.Join(t.TempDir(), "absent"), FormatGzip)
	assert.Error(t, err)
}

func TestCompressCancelledRemovesArtifact(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := makeTree(t, t.TempDir(), "data")
	_, err := Compress(ctx, source, FormatGzip)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(source + ".tar.gz")
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseChain(t *testing.T) {
	tests := []struct {
		path string
		want []string
		stem string
	}{
		{path: "/tmp/backup-20220327224212.tar.bz2", want: []string{".bz2", ".tar"}, stem: "/tmp/backup-20220327224212"},
		{path: "/tmp/backup.tar.gz", want: []string{".gz", ".tar"}, stem: "/tmp/backup"},
		{path: "/tmp/backup.tar.zst", want: []string{".zst", ".tar"}, stem: "/tmp/backup"},
		{path: "/tmp/backup.gz", want: []string{".gz"}, stem: "/tmp/backup"},
		{path: "/tmp/backup.tar", want: []string{".tar"}, stem: "/tmp/backup"},
		{path: "/tmp/backup.TAR.GZ", want: []string{".GZ", ".TAR"}, stem: "/tmp/backup"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			artifact, err := ParseChain(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, artifact.Extensions)
			assert.Equal(t, tt.stem, artifact.Stem())
		})
	}
}

func TestParseChainUnsupported(t *testing.T) {
	tests := []struct {
		path string
		ext  string
	}{
		{path: "/tmp/backup.tar.xz", ext: ".xz"},
		{path: "/tmp/backup.sql.gz", ext: ".sql"},
		{path: "/tmp/backup", ext: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := ParseChain(tt.path)

			var unsupported *UnsupportedFormatError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tt.ext, unsupported.Extension)
		})
	}
}

func TestExpandUnsupportedDoesNotExtract(t *testing.T) {
	dir := t.TempDir()
	source := makeTree(t, dir, "data")

	artifact, err := Compress(context.Background(), source, FormatGzip)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(source))

	// data.tar.gz.xz: the outer extension is unknown, nothing may be written
	odd := artifact.Path + ".xz"
	require.NoError(t, os.Rename(artifact.Path, odd))
	before := listTree(t, dir)

	_, err = Expand(context.Background(), odd)

	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".xz", unsupported.Extension)
	assert.Equal(t, before, listTree(t, dir))
}

func TestExpandCorruptArtifactLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "broken.gz")
	require.NoError(t, os.WriteFile(artifact, []byte("not gzip at all"), 0o644))

	_, err := Expand(context.Background(), artifact)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "broken"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tests := []struct {
		name string
		hdr  tar.Header
	}{
		{name: "parent traversal", hdr: tar.Header{Name: "../evil.txt", Typeflag: tar.TypeReg, Mode: 0o644}},
		{name: "absolute path", hdr: tar.Header{Name: "/etc/evil.txt", Typeflag: tar.TypeReg, Mode: 0o644}},
		{name: "escaping symlink", hdr: tar.Header{Name: "data/link", Typeflag: tar.TypeSymlink, Linkname: "../../outside"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tw := tar.NewWriter(&buf)
			hdr := tt.hdr
			require.NoError(t, tw.WriteHeader(&hdr))
			require.NoError(t, tw.Close())

			dir := t.TempDir()
			err := extractTar(context.Background(), &buf, dir)
			assert.ErrorIs(t, err, ErrUnsafeEntry)
		})
	}
}

func TestCompressStream(t *testing.T) {
	ctx := context.Background()
	source := makeTree(t, t.TempDir(), "stream")

	rc, name, err := CompressStream(ctx, source, FormatZstd)
	require.NoError(t, err)
	assert.Equal(t, "stream.tar.zst", name)

	restoreDir := t.TempDir()
	artifact := filepath.Join(restoreDir, name)
	f, err := os.Create(artifact)
	require.NoError(t, err)
	_, err = io.Copy(f, rc)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, rc.Close())

	expanded, err := Expand(ctx, artifact)
	require.NoError(t, err)
	assert.Equal(t, listTree(t, source), listTree(t, expanded))
}

func TestCompressStreamEarlyClose(t *testing.T) {
	source := makeTree(t, t.TempDir(), "stream")

	rc, _, err := CompressStream(context.Background(), source, FormatBzip2)
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	assert.NoError(t, rc.Close())
}

func TestCompressReader(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("row,value\n"), 1000)

	rc, err := CompressReader(bytes.NewReader(payload), FormatGzip)
	require.NoError(t, err)
	compressed, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Less(t, len(compressed), len(payload))

	artifact := filepath.Join(dir, "backup-20220327224212"+FormatGzip.Extension())
	require.NoError(t, os.WriteFile(artifact, compressed, 0o644))

	expanded, err := Expand(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup-20220327224212"), expanded)

	content, err := os.ReadFile(expanded)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":      FormatBzip2,
		"bzip2": FormatBzip2,
		".gz":   FormatGzip,
		"gzip":  FormatGzip,
		"zstd":  FormatZstd,
		"ZST":   FormatZstd,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("xz")
	var unsupported *UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)
}
