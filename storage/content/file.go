package content

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/coredata/errors"
)

// FileOpener reads local files addressed by file:// URLs or bare paths.
type FileOpener struct {
	// BaseDir anchors relative paths.
	BaseDir string
}

// Open opens the file behind rawURL.
func (f FileOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "FileOpener", "Open", "context check")
	}
	path, err := f.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, fs.ErrPermission) {
			return nil, errors.WrapInvalid(err, "FileOpener", "Open", "open file")
		}
		return nil, errors.WrapTransient(err, "FileOpener", "Open", "open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.WrapTransient(err, "FileOpener", "Open", "stat file")
	}
	if info.IsDir() {
		file.Close()
		return nil, errors.WrapInvalid(fmt.Errorf("%s is a directory", path), "FileOpener", "Open", "open file")
	}
	return file, nil
}

func (f FileOpener) resolve(rawURL string) (string, error) {
	path := rawURL
	if strings.HasPrefix(strings.ToLower(rawURL), "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", errors.WrapInvalid(err, "FileOpener", "Open", "parse file URL")
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", errors.WrapInvalid(fmt.Errorf("remote host %q not supported", u.Host),
				"FileOpener", "Open", "parse file URL")
		}
		path = u.Path
	}
	if path == "" {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "FileOpener", "Open", "empty path")
	}
	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	return filepath.Clean(path), nil
}
