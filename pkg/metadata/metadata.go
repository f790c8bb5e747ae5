// Package metadata derives structural signals from a cleaned post and
// scores how complete the record is.
package metadata

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"

	"igharvest/pkg/models"
)

var (
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9._]+)`)
	urlPattern     = regexp.MustCompile(`https?://[^\s]+`)
)

const sentinelAuthor = "unknown_user"

var validAuthor = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// Extract derives metadata from a cleaned caption and post URL.
func Extract(caption, postURL string) models.Metadata {
	return models.Metadata{
		Hashtags:   matchLowered(hashtagPattern, caption),
		Mentions:   matchLowered(mentionPattern, caption),
		URLs:       urlPattern.FindAllString(caption, -1),
		EmojiCount: len(gomoji.CollectAll(caption)),
		WordCount:  len(strings.Fields(caption)),
		PostType:   TypeOf(postURL),
	}
}

// matchLowered returns the first capture group of every match,
// lowercased, with duplicates preserved in order.
func matchLowered(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

// TypeOf classifies a post by its URL path segment.
func TypeOf(postURL string) models.PostType {
	switch {
	case strings.Contains(postURL, "/reel/"):
		return models.PostTypeReel
	case strings.Contains(postURL, "/tv/"):
		return models.PostTypeIGTV
	case strings.Contains(postURL, "/p/"):
		return models.PostTypePost
	default:
		return models.PostTypeUnknown
	}
}

// QualityScore rates a record's completeness in [0, 1]. Weights:
// author 0.2, url 0.2, caption 0.3, comments 0.3, each with reduced
// partial credit for degraded values.
func QualityScore(author, postURL, caption string, comments map[string]string) float64 {
	var score float64

	switch {
	case author != "" && author != sentinelAuthor && validAuthor.MatchString(author):
		score += 0.2
	case author != "":
		score += 0.1
	}

	switch {
	case strings.Contains(postURL, "instagram.com") &&
		(strings.Contains(postURL, "/p/") || strings.Contains(postURL, "/reel/")):
		score += 0.2
	case postURL != "":
		score += 0.1
	}

	switch {
	case len(caption) > 50:
		score += 0.3
	case len(caption) > 10:
		score += 0.2
	case len(caption) > 0:
		score += 0.1
	}

	if n := len(comments); n > 0 {
		total := 0
		for _, c := range comments {
			total += len(c)
		}
		avg := float64(total) / float64(n)
		switch {
		case n >= 5 && avg > 20:
			score += 0.3
		case n >= 3 && avg > 10:
			score += 0.2
		default:
			score += 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
