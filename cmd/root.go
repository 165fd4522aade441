package cmd

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zillowdl/zillowdl/lib"
)

// rootCmd represents the base command when called without any subcommands

var (
	proxyURL       string
	verbose        bool
	ratePerSecond  int
	timeoutSeconds int
	maxWorkers     int
	ctx            = context.Background()
	parsedProxyURL *url.URL
	fetcher        *lib.Fetcher
	extractor      *lib.Extractor

	rootCmd = &cobra.Command{
		Use:   "zillowdl",
		Short: "Zillow Listing Image Downloader",
		Long:  `zillowdl is a command line tool for discovering and downloading the photos of Zillow real estate listings for archival purposes or data analysis.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if ratePerSecond == 0 {
				log.Fatal("rate must be greater than 0")
			}
			if proxyURL != "" {
				var err error
				parsedProxyURL, err = parseURL(proxyURL)
				if err != nil {
					log.Fatal(err)
				}
			}
			fetcher = lib.NewFetcher(
				lib.WithRatePerSecond(ratePerSecond),
				lib.WithProxyURL(parsedProxyURL),
				lib.WithTimeout(time.Duration(timeoutSeconds)*time.Second),
				lib.WithMaxWorkers(maxWorkers),
			)
			extractor = lib.NewExtractor(fetcher)
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "x", "", "Specify the proxy url")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&ratePerSecond, "rate", "r", lib.DefaultRatePerSecond, "Specify the rate of requests per second")
	rootCmd.PersistentFlags().IntVarP(&maxWorkers, "workers", "w", lib.DefaultMaxWorkers, "Specify the number of concurrent image downloads")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 30, "Specify the per-request timeout in seconds")
}

func parseURL(toTest string) (*url.URL, error) {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(toTest)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url: %s", toTest)
	}

	return u, nil
}
