package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// galleryKeys are the payload keys that hold photo collections, compared
// case-insensitively during the tree walk.
var galleryKeys = map[string]bool{
	"photogallery": true,
	"images":       true,
	"photos":       true,
	"pictures":     true,
	"media":        true,
}

// imageURLFields is the priority order for pulling an image URL out of one
// gallery object; the first present field wins.
var imageURLFields = []string{"url", "href", "src", "imageUrl", "photoUrl"}

// statePatterns match global-state assignments and bare photo-collection
// keys inside script text. The state objects are cut non-greedily, which is
// enough for the flat-ish payloads these pages embed.
var statePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.__APP_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.__PRELOADED_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.__APOLLO_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)"photoGallery":\s*(\[.*?\])`),
	regexp.MustCompile(`(?s)"images":\s*(\[.*?\])`),
	regexp.MustCompile(`(?s)"photos":\s*(\[.*?\])`),
	regexp.MustCompile(`(?s)"media":\s*(\[.*?\])`),
}

// fragmentRe matches small flat JSON objects mentioning a URL-like key,
// the last-resort source of structured image data.
var fragmentRe = regexp.MustCompile(`\{[^{}]*(?:"url"|"href"|"src"|"photo"|"image")[^{}]*\}`)

// fragmentKeys are the keys that make a scavenged JSON fragment acceptable.
var fragmentKeys = []string{"url", "href", "src", "photo", "image"}

// ExtractStructuredPayload mines the page markup for an embedded JSON
// payload that plausibly carries photo data. Three strategies run in
// priority order, first hit wins: script blocks declared as JSON, known
// global-state assignments (plus bare collection keys) in any script, and
// finally flat JSON fragments scavenged from script text. A parse failure
// on one candidate never aborts the scan; it just moves on. The second
// return value reports whether anything was found.
func ExtractStructuredPayload(markup string) (any, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, false
	}

	if payload, ok := payloadFromDeclaredJSON(doc); ok {
		return payload, true
	}

	scripts := scriptTexts(doc)

	for _, script := range scripts {
		for _, re := range statePatterns {
			for _, m := range re.FindAllStringSubmatch(script, -1) {
				if tree, ok := decodeStateMatch(m[1]); ok {
					return tree, true
				}
			}
		}
	}

	for _, script := range scripts {
		lowered := strings.ToLower(script)
		if !strings.Contains(lowered, "photo") && !strings.Contains(lowered, "image") {
			continue
		}
		for _, fragment := range fragmentRe.FindAllString(script, -1) {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(fragment), &decoded); err != nil {
				continue
			}
			for _, key := range fragmentKeys {
				if _, ok := decoded[key]; ok {
					return decoded, true
				}
			}
		}
	}

	return nil, false
}

// payloadFromDeclaredJSON decodes script blocks declared as JSON and
// accepts the first one whose top level carries a photo-collection key.
func payloadFromDeclaredJSON(doc *goquery.Document) (any, bool) {
	var payload any
	found := false
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return true
		}
		if _, ok := decoded["photoGallery"]; !ok {
			if _, ok := decoded["images"]; !ok {
				return true
			}
		}
		payload = decoded
		found = true
		return false
	})
	return payload, found
}

// scriptTexts collects the text of every script block in document order.
func scriptTexts(doc *goquery.Document) []string {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); text != "" {
			scripts = append(scripts, text)
		}
	})
	return scripts
}

// decodeStateMatch validates one regex-extracted JSON blob. Objects must
// carry a photo-collection key at the top level; arrays must hold at least
// one object with a URL-like field and get wrapped under "images" so the
// tree walk finds them.
func decodeStateMatch(match string) (any, bool) {
	switch {
	case strings.HasPrefix(match, "{"):
		var decoded map[string]any
		if err := json.Unmarshal([]byte(match), &decoded); err != nil {
			return nil, false
		}
		for _, key := range []string{"photoGallery", "images", "photos"} {
			if _, ok := decoded[key]; ok {
				return decoded, true
			}
		}
	case strings.HasPrefix(match, "["):
		var decoded []any
		if err := json.Unmarshal([]byte(match), &decoded); err != nil {
			return nil, false
		}
		for _, item := range decoded {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"url", "href", "src"} {
				if _, ok := obj[key]; ok {
					return map[string]any{"images": decoded}, true
				}
			}
		}
	}
	return nil, false
}

// CollectImageURLs walks a decoded JSON tree and returns every image URL it
// can find, first occurrence order, exact duplicates dropped. Gallery keys
// have their object elements mined via the URL field priority list; plain
// strings anywhere in the tree count when they classify as image
// references. Map keys are visited in sorted order so the walk is
// deterministic.
func CollectImageURLs(tree any) []string {
	return dedupeStrings(collectImages(tree))
}

func collectImages(node any) []string {
	var found []string
	switch value := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := value[key]
			if galleryKeys[strings.ToLower(key)] {
				if collection, ok := child.([]any); ok {
					for _, item := range collection {
						if obj, ok := item.(map[string]any); ok {
							if u, ok := pullImageField(obj); ok {
								found = append(found, u)
							}
							found = append(found, collectImages(obj)...)
						} else {
							found = append(found, collectImages(item)...)
						}
					}
					continue
				}
				if s, ok := child.(string); ok {
					if IsImageReference(s) {
						found = append(found, s)
					}
					continue
				}
			}
			found = append(found, collectImages(child)...)
		}
	case []any:
		for _, item := range value {
			found = append(found, collectImages(item)...)
		}
	case string:
		if IsImageReference(value) {
			found = append(found, value)
		}
	}
	return found
}

// pullImageField returns the first populated URL field of a gallery object.
func pullImageField(obj map[string]any) (string, bool) {
	for _, field := range imageURLFields {
		if raw, ok := obj[field]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ExtractStructuredImages is the convenience form combining payload mining
// and the tree walk. An empty result means the caller should fall back to
// ExtractImagesFromMarkup.
func ExtractStructuredImages(markup string) []string {
	tree, ok := ExtractStructuredPayload(markup)
	if !ok {
		return nil
	}
	return CollectImageURLs(tree)
}

// dedupeStrings drops exact repeats, keeping first occurrences in order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Extractor discovers the photo set of a listing page.
type Extractor struct {
	fetcher *Fetcher
}

// NewExtractor creates a new Extractor with the provided Fetcher.
// If the Fetcher is nil, a default Fetcher will be used.
func NewExtractor(f *Fetcher) *Extractor {
	if f == nil {
		f = NewFetcher()
	}
	return &Extractor{fetcher: f}
}

// ExtractListing fetches a listing page and discovers its photo URLs. The
// structured payload is mined first; when it yields nothing the markup
// itself is scanned. Only failure to obtain the page is an error;
// extraction gaps degrade to an empty image list.
func (e *Extractor) ExtractListing(ctx context.Context, pageURL string) (*Listing, error) {
	markup, err := e.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return e.ExtractListingFromMarkup(pageURL, markup), nil
}

// ExtractListingFromMarkup runs the discovery pipeline over markup that has
// already been fetched.
func (e *Extractor) ExtractListingFromMarkup(pageURL, markup string) *Listing {
	var imageURLs []string
	if tree, ok := ExtractStructuredPayload(markup); ok {
		imageURLs = ResolveUnique(CollectImageURLs(tree))
	}
	if len(imageURLs) == 0 {
		imageURLs = ExtractImagesFromMarkup(markup, pageURL)
	}

	listing := newListingFromMarkup(pageURL, markup)
	listing.ImageURLs = imageURLs
	return listing
}
