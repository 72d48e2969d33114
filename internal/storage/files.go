package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/AD7six/shop-images/internal/logging"
	"github.com/spf13/afero"
)

const (
	// partSuffix is appended to files while their content is still streaming in.
	partSuffix = ".part"
)

var (
	// ErrTooLarge is returned by WriteStream when the source exceeds the size limit.
	ErrTooLarge = errors.New("content exceeds maximum size")
	// ErrNoFilename is returned by FilenameFromURL when the URL path has no usable final segment.
	ErrNoFilename = errors.New("URL has no file name")
)

// ListJSONFiles walks dir recursively and returns the paths of all files with
// a .json extension, in walk (lexical) order. A missing dir yields no files.
func ListJSONFiles(fsys afero.Fs, dir string) ([]string, error) {
	if _, err := fsys.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Logger.Debug("directory not found, skipping", "path", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}

	var files []string
	err := afero.Walk(fsys, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		// Only process .json files; a bare ".json" has no extension
		if name := info.Name(); name == ".json" || filepath.Ext(name) != ".json" {
			return nil
		}

		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}

	return files, nil
}

// EnsureDir creates dir if it does not exist. Only the final path element is
// created, so missing parents are an error.
func EnsureDir(fsys afero.Fs, dir string) error {
	info, err := fsys.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path %s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat output directory: %w", err)
	}

	if err := fsys.Mkdir(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FilenameFromURL returns the final segment of the URL path. Query strings and
// fragments never become part of the name.
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %s", ErrNoFilename, rawURL)
	}
	return name, nil
}

// WriteStream copies r into dst. Content is streamed into a sibling .part
// file which is renamed into place once complete; on any failure the part file
// is removed and dst is left untouched. A maxSize of zero or less disables the
// size limit. Returns the number of bytes written.
func WriteStream(fsys afero.Fs, dst string, r io.Reader, maxSize int64) (int64, error) {
	part := dst + partSuffix

	f, err := fsys.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	src := r
	if maxSize > 0 {
		// Read one extra byte so oversize content can be detected.
		src = io.LimitReader(r, maxSize+1)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to write file: %w", copyErr)
	case maxSize > 0 && n > maxSize:
		err = fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxSize)
	case closeErr != nil:
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err != nil {
		if rmErr := fsys.Remove(part); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.Logger.Warn("failed to remove partial file", "path", part, "error", rmErr)
		}
		return 0, err
	}

	if err := fsys.Rename(part, dst); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}
