package lib

import (
	"net/url"
	"strings"
)

// imageExtensions lists the file extensions recognized as image references.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff"}

// photoCDNHost is the canonical host serving listing photos.
const photoCDNHost = "photos.zillowstatic.com"

// IsImageReference reports whether candidate looks like a reference to an
// image. A candidate qualifies when its path component carries a recognized
// image extension, or when it matches the listing photo CDN host/path shape.
// Malformed input is classified as false rather than raising an error, so
// the extractors can feed it arbitrary strings pulled out of markup.
func IsImageReference(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)

	parsed, err := url.Parse(lower)
	if err != nil {
		// Unparseable strings still count if an extension appears anywhere,
		// matching the loose substring behavior expected for raw fragments.
		return containsImageExtension(lower)
	}

	// Scripting and data pseudo-URLs are never fetchable image references.
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if containsImageExtension(parsed.Path) {
		return true
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	// Photo CDN heuristics: the fp/ namespace on the Zillow static host
	// serves listing photos even when the path hides the extension, and
	// photo/image subdomains qualify when an extension shows up anywhere
	// (some CDNs push it into the query string).
	if strings.HasSuffix(host, "zillowstatic.com") && strings.Contains(parsed.Path, "/fp/") {
		return true
	}
	if strings.HasPrefix(host, "photos.") || strings.HasPrefix(host, "images.") {
		return containsImageExtension(lower)
	}

	return false
}

func containsImageExtension(s string) bool {
	for _, ext := range imageExtensions {
		if strings.Contains(s, ext) {
			return true
		}
	}
	return false
}
