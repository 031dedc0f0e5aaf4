// Package archive turns a dump into a single compressed artifact and expands
// artifacts back by walking their extension chain.
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format selects the compressor applied on top of tar
type Format string

const (
	FormatBzip2 Format = "bz2"
	FormatGzip  Format = "gz"
	FormatZstd  Format = "zst"

	DefaultFormat = FormatBzip2
)

const extTar = ".tar"

// ParseFormat accepts the short extension or the common tool name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "bz2", "bzip2":
		return FormatBzip2, nil
	case "gz", "gzip":
		return FormatGzip, nil
	case "zst", "zstd":
		return FormatZstd, nil
	default:
		return "", &UnsupportedFormatError{Extension: s}
	}
}

// Extension is the compressor suffix alone (".bz2"), used for single-file streams
func (f Format) Extension() string {
	return "." + string(f)
}

// ArchiveExtension is the full suffix of a compressed tarball (".tar.bz2")
func (f Format) ArchiveExtension() string {
	return extTar + f.Extension()
}

// Artifact is a file produced by Compress, with the extensions it carries
// listed outermost first.
type Artifact struct {
	Path       string
	Extensions []string
}

// Stem returns the path with the whole extension chain removed
func (a Artifact) Stem() string {
	stem := a.Path
	for _, ext := range a.Extensions {
		stem = strings.TrimSuffix(stem, ext)
	}
	return stem
}

// UnsupportedFormatError reports an extension with no registered transform
type UnsupportedFormatError struct {
	Path      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported archive %q: no extension", e.Path)
	}
	if e.Path == "" {
		return fmt.Sprintf("unsupported archive format %q", e.Extension)
	}
	return fmt.Sprintf("unsupported archive %q: no transform for extension %q", e.Path, e.Extension)
}

// codec is one compression format
type codec struct {
	newWriter func(w io.Writer) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]codec{
	FormatBzip2.Extension(): {
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return bzip2.NewReader(r, &bzip2.ReaderConfig{})
		},
	},
	FormatGzip.Extension(): {
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.DefaultCompression)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	},
	FormatZstd.Extension(): {
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	},
}

func codecFor(f Format) (codec, error) {
	c, ok := codecs[f.Extension()]
	if !ok {
		return codec{}, &UnsupportedFormatError{Extension: f.Extension()}
	}
	return c, nil
}

// ParseChain splits the extension chain off path. Every extension of the base
// name must have a transform; the chain ends when no extension is left.
func ParseChain(path string) (Artifact, error) {
	artifact := Artifact{Path: path}

	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" || ext == name {
			break
		}
		if _, ok := transforms[strings.ToLower(ext)]; !ok {
			return Artifact{}, &UnsupportedFormatError{Path: path, Extension: ext}
		}
		artifact.Extensions = append(artifact.Extensions, ext)
		name = strings.TrimSuffix(name, ext)
	}

	if len(artifact.Extensions) == 0 {
		return Artifact{}, &UnsupportedFormatError{Path: path, Extension: filepath.Ext(name)}
	}

	return artifact, nil
}
