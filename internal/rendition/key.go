// Package rendition defines the canonical storage key shared by the cache-fill
// path and the direct-serve path.
//
// A rendition of original "photo.jpeg" at 100x80 lives at
//
//	images/photo.jpeg-100x80.jpeg
//
// The key depends only on the original key, the requested bounding box and the
// format detected from the original's content. The edge router relies on this:
// any path under Prefix is served straight from storage without asking the
// orchestrator whether the rendition exists.
package rendition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prefix is the key prefix every rendition is stored under.
const Prefix = "images/"

// ComputeKey returns the canonical key for a rendition. Callers validate inputs first.
func ComputeKey(imageKey string, width, height int, format string) string {
	return fmt.Sprintf("%s%s-%dx%d.%s", Prefix, imageKey, width, height, format)
}

// Location returns the redirect target for a rendition key.
func Location(key string) string {
	return "/" + key
}

// Key is a parsed canonical rendition key.
type Key struct {
	ImageKey string
	Width    int
	Height   int
	Format   string
}

// String returns the canonical form of k.
func (k Key) String() string {
	return ComputeKey(k.ImageKey, k.Width, k.Height, k.Format)
}

// The original key may itself contain '-' and 'x'; the greedy prefix leaves only the last -WxH.fmt suffix.
var keyPattern = regexp.MustCompile(`^(.+)-([1-9][0-9]*)x([1-9][0-9]*)\.([a-z]+)$`)

// ParseKey splits a canonical key back into its parts.
func ParseKey(key string) (Key, error) {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(key, "/"), Prefix)
	if !ok {
		return Key{}, fmt.Errorf("rendition key %q does not start with %s", key, Prefix)
	}

	m := keyPattern.FindStringSubmatch(rest)
	if m == nil {
		return Key{}, fmt.Errorf("rendition key %q is not canonical", key)
	}

	width, err := strconv.Atoi(m[2])
	if err != nil {
		return Key{}, fmt.Errorf("invalid width in %q: %w", key, err)
	}
	height, err := strconv.Atoi(m[3])
	if err != nil {
		return Key{}, fmt.Errorf("invalid height in %q: %w", key, err)
	}

	return Key{ImageKey: m[1], Width: width, Height: height, Format: m[4]}, nil
}
