package download

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/AD7six/shop-images/internal/storage"
)

var (
	// ErrFilenameCollision is returned for a URL whose file name was already
	// claimed by an earlier URL in the same batch.
	ErrFilenameCollision = errors.New("file name already used by another URL")
	// ErrInsecureURL is returned for URLs that do not use https.
	ErrInsecureURL = errors.New("only https URLs are supported")
)

// Target represents a URL and the path its content is written to.
type Target struct {
	URL      string
	Filename string // Final segment of the URL path
	Path     string // Filename joined onto the output directory
}

// TargetResult wraps a Target with a potential error from planning.
type TargetResult struct {
	Target Target // The download target; only URL is set when Err is non-nil
	Err    error  // Why the URL cannot be downloaded, if it cannot
}

// PlanTargets maps every URL to a destination in outDir, in input order. The
// first URL to claim a file name keeps it; later URLs with the same name are
// rejected with ErrFilenameCollision.
func PlanTargets(urls []string, outDir string) []TargetResult {
	claimed := make(map[string]string, len(urls))
	out := make([]TargetResult, 0, len(urls))
	for _, raw := range urls {
		t, err := planTarget(raw, outDir, claimed)
		out = append(out, TargetResult{Target: t, Err: err})
	}
	return out
}

func planTarget(raw, outDir string, claimed map[string]string) (Target, error) {
	t := Target{URL: raw}

	u, err := url.Parse(raw)
	if err != nil {
		return t, fmt.Errorf("invalid URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") || u.Host == "" {
		return t, ErrInsecureURL
	}

	name, err := storage.FilenameFromURL(raw)
	if err != nil {
		return t, err
	}
	if owner, ok := claimed[name]; ok {
		return t, fmt.Errorf("%w: %s (claimed by %s)", ErrFilenameCollision, name, owner)
	}
	claimed[name] = raw

	t.Filename = name
	t.Path = filepath.Join(outDir, name)
	return t, nil
}
