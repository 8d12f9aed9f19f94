package imgurl

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"imgharvest/pkg/types"
)

// Resolve turns a raw image reference into an absolute URL string. Absolute
// http(s) and data: references pass through unchanged; everything else is
// joined against base using standard relative resolution. Resolution is
// deterministic: the same (ref, base) pair always yields the same string.
func Resolve(ref string, base *url.URL) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty image reference")
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref, nil
	}

	if base == nil {
		return "", fmt.Errorf("relative reference %q without base URL", ref)
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolve %q against %s: %w", ref, base, err)
	}
	return resolved.String(), nil
}

// Classify decides how the fetch pipeline should treat a URL. Precedence is
// DataEmbedded over VectorExcluded over Fetchable; contentType may be empty
// when no response header is available yet. The same inputs always produce
// the same classification, so the pipeline can re-query it pre-probe,
// post-probe, and post-fetch without drift.
func Classify(raw string, contentType string) types.Classification {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lower, "data:") {
		return types.DataEmbedded
	}
	if isVector(lower, contentType) {
		return types.VectorExcluded
	}
	return types.Fetchable
}

func isVector(lowerURL, contentType string) bool {
	if pathOf(lowerURL) != "" && strings.HasSuffix(pathOf(lowerURL), ".svg") {
		return true
	}
	if strings.Contains(lowerURL, "svg") {
		return true
	}
	if contentType != "" && strings.Contains(strings.ToLower(contentType), "svg") {
		return true
	}
	return false
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// Extension returns the path extension of a URL, query string excluded, or
// the supplied fallback when the path carries none.
func Extension(raw, fallback string) string {
	u, err := url.Parse(raw)
	target := raw
	if err == nil {
		target = u.Path
	} else if idx := strings.Index(target, "?"); idx >= 0 {
		target = target[:idx]
	}
	ext := path.Ext(target)
	if ext == "" || len(ext) > 6 {
		return fallback
	}
	return strings.ToLower(ext)
}
