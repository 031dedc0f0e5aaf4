package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Compress writes sourcePath as a compressed tarball next to it
// (sourcePath + ".tar.bz2" for the default format). A failed run removes the
// partial artifact.
func Compress(ctx context.Context, sourcePath string, format Format) (Artifact, error) {
	if format == "" {
		format = DefaultFormat
	}
	c, err := codecFor(format)
	if err != nil {
		return Artifact{}, err
	}

	source := strings.TrimRight(sourcePath, string(os.PathSeparator))
	if _, err := os.Lstat(source); err != nil {
		return Artifact{}, fmt.Errorf("failed to stat compress source: %w", err)
	}

	out := source + format.ArchiveExtension()
	f, err := os.Create(out)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create archive: %w", err)
	}

	err = writeArchive(ctx, f, source, c)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out)
		return Artifact{}, fmt.Errorf("failed to compress %s: %w", source, err)
	}

	return Artifact{
		Path:       out,
		Extensions: []string{format.Extension(), extTar},
	}, nil
}

func writeArchive(ctx context.Context, w io.Writer, source string, c codec) error {
	cw, err := c.newWriter(w)
	if err != nil {
		return err
	}
	if err := writeTar(ctx, cw, source); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

// CompressStream archives sourcePath into a pipe. The returned name is the
// artifact's file name. Closing the reader early stops the producer.
func CompressStream(ctx context.Context, sourcePath string, format Format) (io.ReadCloser, string, error) {
	if format == "" {
		format = DefaultFormat
	}
	c, err := codecFor(format)
	if err != nil {
		return nil, "", err
	}

	source := strings.TrimRight(sourcePath, string(os.PathSeparator))
	if _, err := os.Lstat(source); err != nil {
		return nil, "", fmt.Errorf("failed to stat compress source: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		if err := writeArchive(ctx, pw, source, c); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to compress %s: %w", source, err))
			return
		}
		_ = pw.Close()
	}()

	return pr, filepath.Base(source) + format.ArchiveExtension(), nil
}

// CompressReader compresses a single byte stream without tar. Used for dumps
// that are produced as one stream.
func CompressReader(r io.Reader, format Format) (io.ReadCloser, error) {
	if format == "" {
		format = DefaultFormat
	}
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		cw, err := c.newWriter(pw)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(cw, r); err != nil {
			_ = cw.Close()
			_ = pw.CloseWithError(err)
			return
		}
		if err := cw.Close(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()

	return pr, nil
}
