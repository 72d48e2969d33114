package collect

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// AssetPrefix marks a theme setting value that points at an image uploaded
// to the shop rather than a literal URL.
const AssetPrefix = "shopify://shop_images/"

// IsAssetRef reports whether s is an internal shop image reference.
func IsAssetRef(s string) bool {
	return strings.HasPrefix(s, AssetPrefix)
}

// ExtractAssetRefs parses data as a single JSON document and returns every
// string value (object member values and array elements, at any depth) that
// is an asset reference, in document order. Object keys are never matched.
func ExtractAssetRefs(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	refs, err := scanValue(dec)
	if err != nil {
		return nil, err
	}

	// Exactly one top-level value is allowed.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, errors.New("unexpected data after top-level value")
		}
		return nil, err
	}
	return refs, nil
}

func scanValue(dec *json.Decoder) ([]string, error) {
	tok, err := nextToken(dec)
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return scanContainer(dec, true)
		case '[':
			return scanContainer(dec, false)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
	case string:
		if IsAssetRef(v) {
			return []string{v}, nil
		}
	}
	return nil, nil
}

// scanContainer consumes the members of an object or array whose opening
// delimiter has already been read, including the closing delimiter. A
// repeated object key replaces the earlier member's value but keeps its
// position.
func scanContainer(dec *json.Decoder, object bool) ([]string, error) {
	var (
		members [][]string
		index   map[string]int
	)
	if object {
		index = make(map[string]int)
	}

	for dec.More() {
		var key string
		if object {
			tok, err := nextToken(dec)
			if err != nil {
				return nil, err
			}
			key, _ = tok.(string)
		}
		found, err := scanValue(dec)
		if err != nil {
			return nil, err
		}

		if object {
			if i, ok := index[key]; ok {
				members[i] = found
				continue
			}
			index[key] = len(members)
		}
		members = append(members, found)
	}

	if _, err := nextToken(dec); err != nil {
		return nil, err
	}

	var refs []string
	for _, found := range members {
		refs = append(refs, found...)
	}
	return refs, nil
}

func nextToken(dec *json.Decoder) (json.Token, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

// ParseCDN validates a CDN base URL. It must be absolute, with a scheme and a host.
func ParseCDN(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid CDN base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid CDN base URL %q: must be an absolute URL", raw)
	}
	return u, nil
}

// ResolveAssetURL joins the path of an asset reference onto the path of base.
// The base URL's scheme, host and query are kept. Escapes already present in
// the reference are preserved rather than escaped again.
func ResolveAssetURL(base *url.URL, ref string) string {
	suffix := strings.TrimPrefix(ref, AssetPrefix)

	u := *base
	decoded, err := url.PathUnescape(suffix)
	if err != nil {
		u.Path = path.Join("/", base.Path, suffix)
		u.RawPath = ""
		return u.String()
	}
	u.Path = path.Join("/", base.Path, decoded)
	// Used by String only when it is a valid encoding of Path.
	u.RawPath = path.Join("/", base.EscapedPath(), suffix)
	return u.String()
}
