package lib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxImageBytes bounds a single image payload.
const maxImageBytes int64 = 32 << 20

// UploadRecord describes the outcome of storing one image.
type UploadRecord struct {
	OriginalURL string
	Key         string
	Location    string
	Size        int64
	Success     bool
	Error       error
}

// UploadSummary aggregates the results of an image batch.
type UploadSummary struct {
	RunID       string
	ListingID   string
	Destination string
	Total       int
	Succeeded   int
	Failed      int
	Items       []UploadRecord
}

// ImageDownloader fetches listing images and persists them through a Store.
type ImageDownloader struct {
	fetcher  *Fetcher
	store    Store
	folder   string // key prefix, empty means "listings/{listingID}"
	progress func(UploadRecord)
}

// NewImageDownloader creates a new ImageDownloader instance. An empty
// folder stores images under "listings/{listingID}".
func NewImageDownloader(fetcher *Fetcher, store Store, folder string) *ImageDownloader {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	return &ImageDownloader{
		fetcher: fetcher,
		store:   store,
		folder:  folder,
	}
}

// OnProgress registers a callback invoked once per finished image. The
// callback may be called from concurrent workers.
func (d *ImageDownloader) OnProgress(fn func(UploadRecord)) {
	d.progress = fn
}

// DownloadImages fetches every image of the listing and stores each one
// under its object key. Individual failures are recorded per image without
// aborting the batch, and results keep the order of listing.ImageURLs.
func (d *ImageDownloader) DownloadImages(ctx context.Context, listing *Listing) (*UploadSummary, error) {
	if listing == nil {
		return nil, fmt.Errorf("listing is nil")
	}

	listingID := listing.ID
	if listingID == "" {
		listingID = ListingID(listing.URL)
	}
	summary := &UploadSummary{
		RunID:       uuid.NewString(),
		ListingID:   listingID,
		Destination: d.store.Destination(),
		Total:       len(listing.ImageURLs),
	}
	if len(listing.ImageURLs) == 0 {
		return summary, nil
	}

	prefix := d.folder
	if prefix == "" {
		prefix = "listings/" + listingID
	}
	filenames := batchFilenames(listing.ImageURLs)
	records := make([]UploadRecord, len(listing.ImageURLs))

	maxWorkers := d.fetcher.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	var eg errgroup.Group
	sem := make(chan struct{}, maxWorkers)

	for i, imageURL := range listing.ImageURLs {
		i, imageURL := i, imageURL
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			key := path.Join(prefix, filenames[i])
			records[i] = d.downloadOne(ctx, imageURL, key, contentTypeForFilename(filenames[i]))
			if d.progress != nil {
				d.progress(records[i])
			}
			return nil
		})
	}
	eg.Wait()

	summary.Items = records
	for _, record := range records {
		if record.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	return summary, nil
}

// downloadOne fetches a single image and stores it under key.
func (d *ImageDownloader) downloadOne(ctx context.Context, imageURL, key, contentType string) UploadRecord {
	record := UploadRecord{
		OriginalURL: imageURL,
		Key:         key,
	}

	body, err := d.fetcher.FetchURL(ctx, imageURL)
	if err != nil {
		record.Error = fmt.Errorf("failed to fetch image: %w", err)
		return record
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes+1))
	if err != nil {
		record.Error = fmt.Errorf("failed to read image: %w", err)
		return record
	}
	if int64(len(data)) > maxImageBytes {
		record.Error = fmt.Errorf("image exceeds %d bytes", maxImageBytes)
		return record
	}
	if len(data) == 0 {
		record.Error = fmt.Errorf("image body is empty")
		return record
	}

	location, err := d.store.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		record.Error = err
		return record
	}

	record.Location = location
	record.Size = int64(len(data))
	record.Success = true
	return record
}

// imageFilename derives an object filename from the image URL, falling
// back to a positional name when the URL path has no usable basename.
func imageFilename(imageURL string, index int) string {
	filename := ""
	if parsed, err := url.Parse(imageURL); err == nil {
		filename = sanitizeFilename(path.Base(parsed.Path))
	}
	if filename == "" || !strings.Contains(filename, ".") {
		filename = fmt.Sprintf("image_%03d.jpg", index+1)
	}
	return filename
}

// batchFilenames derives one filename per URL, suffixing repeats so every
// object in the batch gets a distinct key.
func batchFilenames(urls []string) []string {
	names := make([]string, len(urls))
	seen := make(map[string]int)

	for i, imageURL := range urls {
		name := imageFilename(imageURL, i)
		if count, taken := seen[name]; taken {
			ext := path.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for {
				candidate := fmt.Sprintf("%s_%d%s", base, count, ext)
				if _, exists := seen[candidate]; !exists {
					seen[name] = count + 1
					name = candidate
					break
				}
				count++
			}
		}
		seen[name] = 1
		names[i] = name
	}

	return names
}

// contentTypeForFilename maps the filename extension to an image content
// type, defaulting to image/jpeg.
func contentTypeForFilename(filename string) string {
	if contentType := mime.TypeByExtension(path.Ext(filename)); strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return "image/jpeg"
}
