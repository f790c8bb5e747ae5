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

// LocationNavigator harvests posts tied to a place. Location pages are
// the least stable surface on the site, so after the direct attempts
// fail it degrades to the place name as a hashtag.
type LocationNavigator struct {
	surface browser.Surface
	login   *login.Manager
	orch    *pipeline.Orchestrator
	cfg     *config.Config
	log     logger.Logger
}

// NewLocationNavigator wires a location navigator.
func NewLocationNavigator(surface browser.Surface, loginMgr *login.Manager, orch *pipeline.Orchestrator, cfg *config.Config) *LocationNavigator {
	return &LocationNavigator{
		surface: surface,
		login:   loginMgr,
		orch:    orch,
		cfg:     cfg,
		log:     logger.GetLogger(),
	}
}

// Run authenticates, finds a post grid for the place, and harvests it.
func (n *LocationNavigator) Run(ctx context.Context, place string, postCount, commentCount int) (*models.BatchResult, error) {
	if err := n.login.EnsureLoggedIn(ctx, n.surface); err != nil {
		return nil, err
	}

	if !n.openGrid(ctx, place) {
		return nil, errors.New(errors.ErrorTypeNavigation,
			fmt.Sprintf("no post grid found for place %q", place))
	}
	return n.orch.Harvest(ctx, postCount, commentCount)
}

// openGrid tries each candidate URL until one shows a post grid.
func (n *LocationNavigator) openGrid(ctx context.Context, place string) bool {
	for _, url := range n.candidates(place) {
		if err := n.surface.Navigate(ctx, url); err != nil {
			n.log.DebugWithFields("candidate failed to load", map[string]interface{}{
				"url": url,
			})
			continue
		}
		n.surface.WaitVisible(ctx, "main", n.cfg.Extraction.ProfileLoadWait)
		if n.gridPresent(ctx) {
			n.log.InfoWithFields("place grid found", map[string]interface{}{
				"url": url,
			})
			return true
		}
	}
	return false
}

// candidates orders the URL shapes to try for a place. A numeric id
// goes straight to the location page; a free-text name gets the
// locations search and then the hashtag fallback.
func (n *LocationNavigator) candidates(place string) []string {
	place = strings.TrimSpace(place)
	slug := hashtagSlug(place)

	if isNumeric(place) {
		return []string{
			fmt.Sprintf("https://www.instagram.com/explore/locations/%s/", place),
		}
	}
	return []string{
		fmt.Sprintf("https://www.instagram.com/explore/locations/?q=%s", strings.ReplaceAll(place, " ", "+")),
		fmt.Sprintf("https://www.instagram.com/explore/tags/%s/", slug),
	}
}

// gridPresent reports whether any post link selector matches.
func (n *LocationNavigator) gridPresent(ctx context.Context) bool {
	for _, sel := range n.cfg.Extraction.PostLinkSelectors {
		if n.surface.Exists(ctx, sel) {
			return true
		}
	}
	return false
}

// hashtagSlug lowers a place name into hashtag form.
func hashtagSlug(place string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(place) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
