package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/zillowdl/zillowdl/lib"
)

// downloadCmd represents the download command
var (
	downloadUrl    string
	outputFolder   string
	useS3          bool
	bucketName     string
	keyFolder      string
	savePageFormat string
	dryRun         bool

	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download the images of a listing",
		Long:  `Fetch a listing page, discover its photo URLs, and store every image on local disk or in an S3 bucket.`,
		Run: func(cmd *cobra.Command, args []string) {
			startTime := time.Now()
			parsedURL, err := parseURL(downloadUrl)
			if err != nil {
				log.Fatal(err)
			}
			if verbose {
				if parsedURL.Host != "www.zillow.com" {
					fmt.Printf("Warning: %s does not look like a Zillow listing URL\n", downloadUrl)
				}
				fmt.Printf("Fetching listing %s\n", downloadUrl)
			}
			listing, err := extractor.ExtractListing(ctx, downloadUrl)
			if err != nil {
				log.Fatal(err)
			}
			listingID := listing.ID
			fmt.Printf("Found %d images for listing %s\n", len(listing.ImageURLs), listingID)
			if dryRun {
				for i, imageURL := range listing.ImageURLs {
					fmt.Printf("%2d. %s\n", i+1, imageURL)
				}
				fmt.Println("Dry run, exiting...")
				return
			}

			if savePageFormat != "" {
				if err := savePage(listing, listingID); err != nil {
					log.Fatal(err)
				}
			}
			if len(listing.ImageURLs) == 0 {
				return
			}

			downloader := makeDownloader(listingID)
			bar := progressbar.Default(int64(len(listing.ImageURLs)), "downloading")
			downloader.OnProgress(func(lib.UploadRecord) {
				bar.Add(1)
			})

			summary, err := downloader.DownloadImages(ctx, listing)
			if err != nil {
				log.Fatal(err)
			}
			bar.Finish()

			for _, item := range summary.Items {
				if !item.Success {
					fmt.Printf("failed: %s (%v)\n", item.OriginalURL, item.Error)
				} else if verbose {
					fmt.Printf("%s -> %s\n", item.OriginalURL, item.Location)
				}
			}
			fmt.Printf("Downloaded %d/%d images to %s\n", summary.Succeeded, summary.Total, summary.Destination)
			if verbose {
				fmt.Println("Done in ", time.Since(startTime))
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.PersistentFlags().StringVarP(&downloadUrl, "url", "u", "", "Specify the listing url")
	downloadCmd.PersistentFlags().StringVarP(&outputFolder, "output", "o", "", "Specify the local download directory (default \"zillow_images_<listing id>\")")
	downloadCmd.PersistentFlags().BoolVar(&useS3, "s3", false, "Upload images to S3 instead of saving locally")
	downloadCmd.PersistentFlags().StringVarP(&bucketName, "bucket", "b", "", "Specify the S3 bucket (default $S3_BUCKET_NAME or \"zillow-images\")")
	downloadCmd.PersistentFlags().StringVar(&keyFolder, "folder", "", "Specify the key prefix for stored images (S3 default \"listings/<listing id>\")")
	downloadCmd.PersistentFlags().StringVarP(&savePageFormat, "save-page", "f", "", "Also save the listing page (options: \"html\", \"md\", \"txt\")")
	downloadCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "Enable dry run")
	downloadCmd.MarkPersistentFlagRequired("url")
}

// localDir returns the local output directory for a listing.
func localDir(listingID string) string {
	if outputFolder != "" {
		return outputFolder
	}
	return "zillow_images_" + listingID
}

// makeStore picks the storage backend, falling back to local storage when
// the S3 bucket is not reachable.
func makeStore(listingID string) lib.Store {
	if useS3 {
		store, err := lib.NewS3Store(ctx, lib.S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          os.Getenv("S3_REGION"),
			Bucket:          bucketName,
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    os.Getenv("S3_ENDPOINT") != "",
		})
		if err == nil {
			return store
		}
		fmt.Printf("S3 not available (%v), saving images locally\n", err)
	}
	return lib.NewLocalStore(localDir(listingID))
}

// makeDownloader wires the fetcher to the chosen store. Local storage,
// including S3 runs that fell back to it, keeps images flat inside the
// per-listing folder unless a key prefix was given.
func makeDownloader(listingID string) *lib.ImageDownloader {
	store := makeStore(listingID)
	folder := keyFolder
	if _, local := store.(*lib.LocalStore); local && folder == "" {
		folder = "."
	}
	return lib.NewImageDownloader(fetcher, store, folder)
}

// savePage writes the listing page itself next to the downloaded images.
func savePage(listing *lib.Listing, listingID string) error {
	path := filepath.Join(localDir(listingID), fmt.Sprintf("%s.%s", listingID, savePageFormat))
	if verbose {
		fmt.Printf("Writing listing page to file %s\n", path)
	}
	return listing.WriteToFile(path, savePageFormat)
}
