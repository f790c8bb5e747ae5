package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"igharvest/pkg/api"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/ui"
)

var (
	// Scrape command flags
	postCount    int
	commentCount int
	outputDir    string
	accountsList string
	headed       bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <username>",
	Short: "Harvest posts from a profile",
	Long: `Harvest post data from a public Instagram profile.

The harvester logs in with the configured accounts, opens the profile,
discovers post links by scrolling the grid, and extracts each post into
a cleaned, scored JSON record. Results land under the output directory,
one folder per profile, with latest.json always pointing at the newest
run.`,
	Example: `  # Harvest ten posts with five comments each (the defaults)
  igharvest scrape natgeo

  # Harvest more posts into a specific directory
  igharvest scrape natgeo --posts 25 --output ./harvests

  # Override the account list for this run
  igharvest scrape natgeo --accounts "user1:pass1;user2:pass2:TOTPSECRET"

  # Watch the browser work
  igharvest scrape natgeo --headed`,
	Args: cobra.ExactArgs(1),
	Run:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVarP(&postCount, "posts", "n", api.DefaultPostCount, "number of posts to harvest")
	scrapeCmd.Flags().IntVarP(&commentCount, "comments", "m", api.DefaultCommentCount, "number of comments per post")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for results")
	scrapeCmd.Flags().StringVar(&accountsList, "accounts", "", "credential list (username:password[:totp];...)")
	scrapeCmd.Flags().BoolVar(&headed, "headed", false, "run the browser with a visible window")
}

func runScrape(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])
	ui.PrintInfo("Target Profile", username)

	flags := map[string]interface{}{}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if headed {
		flags["headless"] = false
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	h, err := newHarvester(cfg)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	req := api.ScrapeRequest{
		Account:      username,
		PostCount:    clamp(postCount, api.MaxPostCount),
		CommentCount: clamp(commentCount, api.MaxCommentCount),
		Accounts:     accountsList,
	}

	logger.GetLogger().InfoWithFields("starting harvest", map[string]interface{}{
		"username": username,
		"posts":    req.PostCount,
	})

	result, summary, err := h.RunAccount(cmd.Context(), req)
	if err != nil {
		logger.GetLogger().WithError(err).Error("harvest failed")
		ui.PrintError("Harvest failed", err.Error())
		os.Exit(1)
	}

	if summary != nil && summary.Status != models.ProfileAvailable {
		ui.PrintWarning("Profile not harvestable", string(summary.Status))
		return
	}

	ui.PrintSuccess(fmt.Sprintf("Harvested %d of %d posts (%d failed)",
		result.ExtractedCount, result.RequestedCount, len(result.Errors)))
	ui.PrintInfo("Results", h.results.BaseDir())
}

func clamp(v, max int) int {
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}
