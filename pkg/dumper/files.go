package dumper

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Files backs up a directory tree. The option string is the directory:
// the tree to copy on dump, the target to restore into on restore.
type Files struct {
	logger zerolog.Logger
}

var _ Dumper = (*Files)(nil)

func NewFiles(logger zerolog.Logger) *Files {
	return &Files{logger: logger}
}

func (f *Files) Dump(ctx context.Context, destination, userOptions string) (Output, error) {
	source, err := singlePath(userOptions)
	if err != nil {
		return Output{}, err
	}

	n, err := copyTree(ctx, source, destination)
	if err != nil {
		return Output{}, fmt.Errorf("failed to copy %s: %w", source, err)
	}
	return Output{Stdout: fmt.Sprintf("copied %d files from %s", n, source)}, nil
}

func (f *Files) Restore(ctx context.Context, source, userOptions string) (Output, error) {
	target, err := singlePath(userOptions)
	if err != nil {
		return Output{}, err
	}

	n, err := copyTree(ctx, source, target)
	if err != nil {
		return Output{}, fmt.Errorf("failed to restore into %s: %w", target, err)
	}
	return Output{Stdout: fmt.Sprintf("restored %d files into %s", n, target)}, nil
}

func singlePath(userOptions string) (string, error) {
	args, err := SplitArgs(userOptions)
	if err != nil {
		return "", err
	}
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("files dumper expects exactly one directory, got %q", userOptions)
	}
	return args[0], nil
}

// copyTree copies the contents of src into dst, creating dst. Symlinks are
// recreated, not followed.
func copyTree(ctx context.Context, src, dst string) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			copied++
			return copyFile(p, target, info.Mode().Perm())
		default:
			return nil
		}
	})
	return copied, err
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
