package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// urlsCmd represents the urls command
var (
	listingUrl string
	urlsCmd    = &cobra.Command{
		Use:   "urls",
		Short: "List the image URLs of a listing",
		Long:  `Fetch a listing page and print the discovered image URLs without downloading anything.`,
		Run: func(cmd *cobra.Command, args []string) {
			parsedURL, err := parseURL(listingUrl)
			if err != nil {
				log.Fatal(err)
			}
			if verbose {
				if parsedURL.Host != "www.zillow.com" {
					fmt.Printf("Warning: %s does not look like a Zillow listing URL\n", listingUrl)
				}
				fmt.Printf("Fetching listing %s\n", parsedURL)
			}
			listing, err := extractor.ExtractListing(ctx, listingUrl)
			if err != nil {
				log.Fatal(err)
			}
			if len(listing.ImageURLs) == 0 {
				fmt.Println("No images found on this listing.")
				return
			}
			fmt.Printf("Found %d images:\n", len(listing.ImageURLs))
			for i, imageURL := range listing.ImageURLs {
				fmt.Printf("%2d. %s\n", i+1, imageURL)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(urlsCmd)
	urlsCmd.PersistentFlags().StringVarP(&listingUrl, "url", "u", "", "Specify the listing url")
	urlsCmd.MarkPersistentFlagRequired("url")
}
