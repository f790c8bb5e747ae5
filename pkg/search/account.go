// Package search locates a harvestable post grid for a target, either
// a profile straight from its username or a location page with a
// hashtag fallback, and classifies targets that cannot be harvested.
package search

import (
	"context"
	"fmt"
	"strings"

	"igharvest/pkg/browser"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/login"
	"igharvest/pkg/models"
	"igharvest/pkg/pipeline"
)

// Markup cues for profiles that cannot be harvested. Text matching is
// done against the page source because these banners carry no stable
// attributes.
const (
	unavailableCue = "Sorry, this page isn't available"
	privateCue     = "This account is private"
)

// AccountNavigator harvests a profile identified by username.
type AccountNavigator struct {
	surface browser.Surface
	login   *login.Manager
	orch    *pipeline.Orchestrator
	cfg     *config.Config
	log     logger.Logger
}

// NewAccountNavigator wires an account navigator.
func NewAccountNavigator(surface browser.Surface, loginMgr *login.Manager, orch *pipeline.Orchestrator, cfg *config.Config) *AccountNavigator {
	return &AccountNavigator{
		surface: surface,
		login:   loginMgr,
		orch:    orch,
		cfg:     cfg,
		log:     logger.GetLogger(),
	}
}

// Run authenticates, opens the profile, and harvests it. Private and
// unavailable profiles produce an empty batch with the summary telling
// the caller why; only authentication and navigation failures are
// errors.
func (n *AccountNavigator) Run(ctx context.Context, username string, postCount, commentCount int) (*models.BatchResult, *models.ProfileSummary, error) {
	if err := n.login.EnsureLoggedIn(ctx, n.surface); err != nil {
		return nil, nil, err
	}

	summary, err := n.open(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if summary.Status != models.ProfileAvailable || !summary.HasPosts {
		n.log.WarnWithFields("profile not harvestable", map[string]interface{}{
			"username": username,
			"status":   string(summary.Status),
		})
		return &models.BatchResult{
			RequestedCount: postCount,
			Posts:          []models.CleanedPost{},
			Errors:         []models.BatchError{},
		}, summary, nil
	}

	result, err := n.orch.Harvest(ctx, postCount, commentCount)
	if err != nil {
		return nil, summary, err
	}
	return result, summary, nil
}

// open navigates to the profile and classifies its accessibility.
func (n *AccountNavigator) open(ctx context.Context, username string) (*models.ProfileSummary, error) {
	profileURL := fmt.Sprintf("https://www.instagram.com/%s/", strings.Trim(username, "/@ "))
	summary := &models.ProfileSummary{
		Username:   strings.Trim(username, "/@ "),
		ProfileURL: profileURL,
	}

	if err := n.surface.Navigate(ctx, profileURL); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNavigation,
			fmt.Sprintf("failed to open profile %s", username), err)
	}
	n.surface.WaitVisible(ctx, "main", n.cfg.Extraction.ProfileLoadWait)

	source, err := n.surface.PageSource(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNavigation, "failed to read profile page", err)
	}

	switch {
	case strings.Contains(source, unavailableCue):
		summary.Status = models.ProfileUnavailable
	case strings.Contains(source, privateCue):
		summary.Status = models.ProfilePrivate
	default:
		summary.Status = models.ProfileAvailable
		summary.HasPosts = n.gridPresent(ctx)
	}
	return summary, nil
}

// gridPresent reports whether any post link selector matches.
func (n *AccountNavigator) gridPresent(ctx context.Context) bool {
	for _, sel := range n.cfg.Extraction.PostLinkSelectors {
		if n.surface.Exists(ctx, sel) {
			return true
		}
	}
	return false
}
