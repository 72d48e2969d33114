package collect

import (
	"fmt"
	"path/filepath"

	"github.com/AD7six/shop-images/internal/logging"
	"github.com/AD7six/shop-images/internal/storage"
	"github.com/spf13/afero"
)

// ProjectDirs are the directories of a theme project, relative to its root,
// that are scanned for JSON files.
var ProjectDirs = []string{"config", "templates"}

// FromProject scans the JSON files of a theme project for shop image
// references and resolves each one against the CDN base URL. A malformed JSON
// file aborts the scan with a *ParseError.
func FromProject(fsys afero.Fs, root, cdn string) ([]string, error) {
	base, err := ParseCDN(cdn)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, dir := range ProjectDirs {
		files, err := storage.ListJSONFiles(fsys, filepath.Join(root, dir))
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			found, err := scanFile(fsys, file)
			if err != nil {
				return nil, err
			}
			logging.Logger.Debug("scanned file", "path", file, "images", len(found))
			refs = append(refs, found...)
		}
	}

	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, ResolveAssetURL(base, ref))
	}
	return urls, nil
}

func scanFile(fsys afero.Fs, file string) ([]string, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	refs, err := ExtractAssetRefs(data)
	if err != nil {
		return nil, &ParseError{Path: file, Err: err}
	}
	return refs, nil
}
