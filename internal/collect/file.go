package collect

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// FromFile reads a newline-delimited list of URLs. Surrounding whitespace is
// trimmed from the body and from each line, and blank lines are dropped.
func FromFile(fsys afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}

	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil, nil
	}

	lines := strings.Split(body, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}
