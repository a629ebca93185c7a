package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/news"
	"github.com/smassist/backend/pkg/httputil"
)

// newsCmd represents the news command
var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "Search recent news for a stock or topic",
	Long: `Searches Google News for recent headlines matching the query and
prints them with publisher and publication time.

Example:
  go run ./cmd/smassist news "Tata Motors"
  go run ./cmd/smassist news RELIANCE --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNews,
}

var newsLimit int

func init() {
	rootCmd.AddCommand(newsCmd)

	newsCmd.Flags().IntVar(&newsLimit, "limit", 10, "maximum number of headlines")
}

func runNews(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	query := strings.Join(args, " ")

	httpClient := httputil.New(rt.cfg, rt.log)
	client := news.NewClient(httpClient, rt.log)

	items, err := client.Search(ctx, query, newsLimit)
	if err != nil {
		return fmt.Errorf("search news: %w", err)
	}
	if len(items) == 0 {
		fmt.Printf("No news found for %q\n", query)
		return nil
	}

	fmt.Printf("News for %q:\n", query)
	PrintSeparator()
	for i, item := range items {
		fmt.Printf("%2d. %s\n", i+1, item.Title)
		meta := item.Publisher
		if item.Published != "" {
			meta += "  " + item.Published
		}
		fmt.Printf("    %s\n", meta)
		if verbose && item.Description != "" {
			fmt.Printf("    %s\n", item.Description)
		}
		fmt.Printf("    %s\n", item.Link)
	}

	return nil
}
