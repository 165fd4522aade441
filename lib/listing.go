package lib

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/k3a/html2text"
)

// zpidRe captures the numeric listing identifier embedded in listing URLs.
var zpidRe = regexp.MustCompile(`/(\d+)_zpid/`)

// Listing represents one listing page and the photo set discovered on it.
type Listing struct {
	URL         string   `json:"url"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
	BodyHTML    string   `json:"-"`
}

// ListingID derives a stable identifier for a listing from its URL. URLs
// carrying a zpid segment map to "zpid_<digits>"; anything else gets a
// six digit FNV hash with a "listing_" prefix, deterministic across runs.
func ListingID(pageURL string) string {
	if m := zpidRe.FindStringSubmatch(pageURL); m != nil {
		return "zpid_" + m[1]
	}
	h := fnv.New32a()
	h.Write([]byte(pageURL))
	return fmt.Sprintf("listing_%06d", h.Sum32()%1000000)
}

// newListingFromMarkup builds the listing record, pulling title and
// description out of the page head when present.
func newListingFromMarkup(pageURL, markup string) *Listing {
	listing := &Listing{
		URL:      pageURL,
		ID:       ListingID(pageURL),
		BodyHTML: markup,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return listing
	}
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(title) != "" {
		listing.Title = strings.TrimSpace(title)
	} else {
		listing.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		listing.Description = strings.TrimSpace(desc)
	}
	return listing
}

// snapshotTitle returns the heading for snapshot exports, falling back to
// the listing identifier for untitled pages.
func (l *Listing) snapshotTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return l.ID
}

// ToMD renders the listing's page markup as Markdown. withDetails prepends
// a header built from the listing metadata.
func (l *Listing) ToMD(withDetails bool) (string, error) {
	converter := md.NewConverter("", true, nil)
	body, err := converter.ConvertString(l.BodyHTML)
	if err != nil {
		return "", err
	}
	if !withDetails {
		return body, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", l.snapshotTitle())
	if l.Description != "" {
		sb.WriteString(l.Description + "\n\n")
	}
	fmt.Fprintf(&sb, "Photos: %d\n", len(l.ImageURLs))
	if l.URL != "" {
		fmt.Fprintf(&sb, "Source: %s\n", l.URL)
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	return sb.String(), nil
}

// ToText renders the listing's page markup as plain text. withDetails
// prepends a header built from the listing metadata.
func (l *Listing) ToText(withDetails bool) string {
	body := html2text.HTML2Text(l.BodyHTML)
	if !withDetails {
		return body
	}

	var sb strings.Builder
	sb.WriteString(l.snapshotTitle() + "\n\n")
	if l.Description != "" {
		sb.WriteString(l.Description + "\n\n")
	}
	fmt.Fprintf(&sb, "Photos: %d\n", len(l.ImageURLs))
	if l.URL != "" {
		fmt.Fprintf(&sb, "Source: %s\n", l.URL)
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	return sb.String()
}

// ToHTML returns the page markup, with withDetails adding a header built
// from the listing metadata above it.
func (l *Listing) ToHTML(withDetails bool) string {
	if !withDetails {
		return l.BodyHTML
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(l.snapshotTitle()))
	if l.Description != "" {
		fmt.Fprintf(&sb, "<p>%s</p>\n", html.EscapeString(l.Description))
	}
	if l.URL != "" {
		fmt.Fprintf(&sb, "<p>Photos: %d | Source: <a href=%q>%s</a></p>\n\n", len(l.ImageURLs), l.URL, html.EscapeString(l.URL))
	} else {
		fmt.Fprintf(&sb, "<p>Photos: %d</p>\n\n", len(l.ImageURLs))
	}
	sb.WriteString(l.BodyHTML)
	return sb.String()
}

// ToJSON converts the Listing's metadata and image URLs to a JSON string.
func (l *Listing) ToJSON() (string, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteToFile writes the Listing's page snapshot to a file in the
// specified format (html, md, or txt).
func (l *Listing) WriteToFile(path string, format string) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var content string
	switch format {
	case "html":
		content = l.ToHTML(true)
	case "md":
		content, err = l.ToMD(true)
		if err != nil {
			return err
		}
	case "txt":
		content = l.ToText(true)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	_, err = f.WriteString(content)
	if err != nil {
		return err
	}

	return f.Sync()
}
