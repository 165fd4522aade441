package lib

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultOrigin anchors rooted image paths when no usable page URL is known.
const defaultOrigin = "https://www.zillow.com"

// imgSourceAttrs is the attribute cascade checked on img elements, primary
// source first, lazy-load variants after.
var imgSourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-srcset"}

// cdnPhotoRe matches fully qualified CDN photo URLs in raw markup text.
var cdnPhotoRe = regexp.MustCompile(`https://photos\.zillowstatic\.com/fp/([a-f0-9]{32})-cc_ft_\d+\.(jpg|webp|png)`)

// backgroundImageRe pulls the URL out of an inline background-image declaration.
var backgroundImageRe = regexp.MustCompile(`background-image:\s*url\(["']?([^"']+)["']?\)`)

// srcsetTokenRe splits a srcset attribute into URL and descriptor tokens.
var srcsetTokenRe = regexp.MustCompile(`[^\s,]+`)

// ExtractImagesFromMarkup scans HTML elements, inline styles, and raw page
// text for image references. It is the fallback for pages whose structured
// payloads yield nothing. Rooted references are resolved against the page
// origin, scheme-relative ones against https, and every CDN photo found in
// raw text is synthesized at the maximum resolution so a page exposing only
// thumbnails still yields full-size links. The returned list has already
// been through ResolveUnique.
func ExtractImagesFromMarkup(markup string, pageURL string) []string {
	origin := originForPage(pageURL)
	var candidates []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			for _, attr := range imgSourceAttrs {
				val, ok := s.Attr(attr)
				if !ok || !IsImageReference(val) {
					continue
				}
				if strings.Contains(attr, "srcset") {
					candidates = append(candidates, srcsetURLs(val, origin)...)
				} else {
					candidates = append(candidates, normalizeImageURL(val, origin))
				}
				break // one source per img element
			}
		})

		doc.Find("picture source").Each(func(_ int, s *goquery.Selection) {
			if srcset, ok := s.Attr("srcset"); ok {
				candidates = append(candidates, srcsetURLs(srcset, origin)...)
			}
		})

		doc.Find(`[style*="background-image"]`).Each(func(_ int, s *goquery.Selection) {
			style, _ := s.Attr("style")
			m := backgroundImageRe.FindStringSubmatch(style)
			if m != nil && IsImageReference(m[1]) {
				candidates = append(candidates, normalizeImageURL(m[1], origin))
			}
		})

		doc.Find("[data-src]").Each(func(_ int, s *goquery.Selection) {
			if val, ok := s.Attr("data-src"); ok && IsImageReference(val) {
				candidates = append(candidates, normalizeImageURL(val, origin))
			}
		})
	}

	for _, m := range cdnPhotoRe.FindAllStringSubmatch(markup, -1) {
		full := fmt.Sprintf("https://%s/fp/%s-cc_ft_%d.%s", photoCDNHost, m[1], maxPhotoResolution, m[2])
		candidates = append(candidates, full)
	}

	return ResolveUnique(candidates)
}

// srcsetURLs extracts every image URL out of a srcset attribute value.
// Width and density descriptors fail classification and fall away.
func srcsetURLs(srcset, origin string) []string {
	var urls []string
	for _, token := range srcsetTokenRe.FindAllString(srcset, -1) {
		if IsImageReference(token) {
			urls = append(urls, normalizeImageURL(token, origin))
		}
	}
	return urls
}

// normalizeImageURL makes an extracted reference absolute. Scheme-relative
// references get https, rooted paths get the page origin, everything else
// passes through unchanged.
func normalizeImageURL(raw, origin string) string {
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return origin + raw
	default:
		return raw
	}
}

// originForPage returns scheme://host for the listing page, or the default
// origin when the page URL is missing or unparseable.
func originForPage(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return defaultOrigin
	}
	return parsed.Scheme + "://" + parsed.Host
}
