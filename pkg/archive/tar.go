package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafeEntry is returned for tar entries that would land outside the
// extraction directory
var ErrUnsafeEntry = errors.New("archive entry escapes target directory")

// writeTar archives source into w. Entry names are relative to the parent of
// source, so the archive's top entry is source's own leaf name.
func writeTar(ctx context.Context, w io.Writer, source string) error {
	root, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	parent := filepath.Dir(root)

	tw := tar.NewWriter(w)

	err = filepath.WalkDir(root, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(parent, full)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(full); err != nil {
				return err
			}
		} else if !info.IsDir() && !info.Mode().IsRegular() {
			// sockets, devices and pipes are not archived
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFileInto(tw, full)
	})
	if err != nil {
		return err
	}

	return tw.Close()
}

func copyFileInto(w io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// extractTar unpacks r into dir. Entries with absolute names, names escaping
// dir, or symlinks pointing outside dir fail the extraction.
func extractTar(ctx context.Context, r io.Reader, dir string) error {
	tr := tar.NewReader(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		if err := extractEntry(tr, hdr, dir); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, dir string) error {
	name, err := cleanEntryName(hdr.Name)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	target := filepath.Join(dir, filepath.FromSlash(name))

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700)

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()

	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return fmt.Errorf("%w: %s -> %s", ErrUnsafeEntry, hdr.Name, hdr.Linkname)
		}
		resolved := path.Join(path.Dir(name), hdr.Linkname)
		if resolved == ".." || strings.HasPrefix(resolved, "../") {
			return fmt.Errorf("%w: %s -> %s", ErrUnsafeEntry, hdr.Name, hdr.Linkname)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(hdr.Linkname, target)

	default:
		return nil
	}
}

func cleanEntryName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}

	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	return cleaned, nil
}
