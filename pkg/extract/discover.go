package extract

import (
	"context"
	"strings"
	"time"

	"igharvest/pkg/browser"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/logger"
)

// Discover collects post permalinks from an already-loaded profile grid
// by scrolling until targetCount links are found, the page stops
// growing, or the iteration cap is hit. Returned links are absolute,
// deduplicated, and in first-seen order.
func Discover(ctx context.Context, surface browser.Surface, cfg *config.ExtractionConfig, targetCount int) ([]string, error) {
	log := logger.GetLogger()

	var links []string
	seen := make(map[string]struct{})

	collect := func() error {
		hrefs, err := harvestLinks(ctx, surface, cfg.PostLinkSelectors)
		if err != nil {
			return err
		}
		for _, href := range hrefs {
			href = absoluteLink(href)
			if href == "" {
				continue
			}
			if _, dup := seen[href]; dup {
				continue
			}
			seen[href] = struct{}{}
			links = append(links, href)
			if len(links) >= targetCount {
				return nil
			}
		}
		return nil
	}

	if err := collect(); err != nil {
		return nil, err
	}

	lastHeight := int64(-1)
	for i := 0; i < cfg.MaxScrollIterations && len(links) < targetCount; i++ {
		if err := ctx.Err(); err != nil {
			return links, err
		}
		if err := surface.ScrollToBottom(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrorTypeNavigation, "scroll failed", err)
		}
		settled(ctx, cfg.ScrollSettleDelay)

		if err := collect(); err != nil {
			return nil, err
		}

		height, err := surface.PageHeight(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeNavigation, "failed to measure page", err)
		}
		if height == lastHeight {
			log.DebugWithFields("page height stalled, stopping discovery", map[string]interface{}{
				"iterations": i + 1,
				"links":      len(links),
			})
			break
		}
		lastHeight = height
	}

	log.InfoWithFields("post discovery finished", map[string]interface{}{
		"found":     len(links),
		"requested": targetCount,
	})
	if len(links) > targetCount {
		links = links[:targetCount]
	}
	return links, nil
}

// harvestLinks tries each selector in order and returns the hrefs of
// the first selector that matches anything.
func harvestLinks(ctx context.Context, surface browser.Surface, selectors []string) ([]string, error) {
	for _, sel := range selectors {
		hrefs, err := surface.Attributes(ctx, sel, "href")
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeExtraction, "link query failed", err)
		}
		if len(hrefs) > 0 {
			return hrefs, nil
		}
	}
	return nil, nil
}

// absoluteLink normalizes a grid href to an absolute permalink, or ""
// when the href is not a post link.
func absoluteLink(href string) string {
	if !strings.Contains(href, "/p/") && !strings.Contains(href, "/reel/") {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		return "https://www.instagram.com" + href
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

// settled waits for lazily-loaded grid items to render after a scroll.
func settled(ctx context.Context, delay time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
