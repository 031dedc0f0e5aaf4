package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// transform consumes one extension of path and returns the path it produced
type transform func(ctx context.Context, path, ext string) (string, error)

// transforms is the closed table of extensions Expand understands
var transforms = map[string]transform{
	extTar:                  untar,
	FormatBzip2.Extension(): decompress,
	FormatGzip.Extension():  decompress,
	FormatZstd.Extension():  decompress,
}

// Expand reverses the extension chain of artifactPath one extension at a
// time and returns the expanded path, which is artifactPath with the chain
// removed. Compression only appends extensions and never renames the stem.
// The chain is validated before anything is written.
func Expand(ctx context.Context, artifactPath string) (string, error) {
	artifact, err := ParseChain(artifactPath)
	if err != nil {
		return "", err
	}

	current := artifactPath
	for _, ext := range artifact.Extensions {
		step := transforms[strings.ToLower(ext)]

		next, err := step(ctx, current, ext)
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", current, err)
		}

		if current != artifactPath {
			_ = os.Remove(current)
		}
		current = next
	}

	return current, nil
}

// decompress writes the decoded content of path to a sibling without ext
func decompress(ctx context.Context, path, ext string) (string, error) {
	c, ok := codecs[strings.ToLower(ext)]
	if !ok {
		return "", &UnsupportedFormatError{Path: path, Extension: ext}
	}

	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	r, err := c.newReader(in)
	if err != nil {
		return "", err
	}
	defer r.Close()

	out := strings.TrimSuffix(path, ext)
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, &contextReader{ctx: ctx, r: r})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out)
		return "", err
	}

	return out, nil
}

// untar extracts path into its own directory. The archive's top entry is the
// stem, so the stem is what the step produces.
func untar(ctx context.Context, path, ext string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	if err := extractTar(ctx, in, filepath.Dir(path)); err != nil {
		return "", err
	}

	return strings.TrimSuffix(path, ext), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
