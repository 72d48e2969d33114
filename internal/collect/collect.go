package collect

import (
	"fmt"

	"github.com/AD7six/shop-images/internal/config"
	"github.com/spf13/afero"
)

// Collect picks the collection strategy from the type of opts.Input: a
// directory is scanned as a theme project, anything else is read as a list of
// URLs. The result may contain duplicates.
func Collect(fsys afero.Fs, opts config.Options) ([]string, error) {
	info, err := fsys.Stat(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if !info.IsDir() {
		return FromFile(fsys, opts.Input)
	}

	if opts.CDN == "" {
		return nil, config.ErrCDNRequired
	}
	return FromProject(fsys, opts.Input, opts.CDN)
}
