package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"igharvest/pkg/browser"
	"igharvest/pkg/clean"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
)

var (
	ogTitleAuthor  = regexp.MustCompile(`\(@([a-zA-Z0-9._]+)\)`)
	rawAuthor      = regexp.MustCompile(`"(?:username|owner_username)"\s*:\s*"([a-zA-Z0-9._]+)"`)
	rawTimestamp   = regexp.MustCompile(`"taken_at_timestamp"\s*:\s*(\d+)`)
	rawCaption     = regexp.MustCompile(`"(?:caption|edge_media_to_caption[^"]*text)"\s*:\s*"((?:[^"\\]|\\.){10,})"`)
	ogDescComments = regexp.MustCompile(`^[\d,.]+[KkMm]? (?:likes|comments)`)
)

// Extractor drives the per-post field chains against a browsing
// surface.
type Extractor struct {
	cfg *config.ExtractionConfig
	log logger.Logger
}

// New returns an Extractor tuned by cfg.
func New(cfg *config.ExtractionConfig) *Extractor {
	return &Extractor{cfg: cfg, log: logger.GetLogger()}
}

// ExtractPost navigates to a post and pulls its raw fields. Individual
// field misses degrade to per-field defaults; only navigation or parse
// failures are errors.
func (e *Extractor) ExtractPost(ctx context.Context, surface browser.Surface, postURL string, commentLimit int) (models.RawPost, error) {
	if err := surface.Navigate(ctx, postURL); err != nil {
		return models.RawPost{}, errors.Wrap(errors.ErrorTypeNavigation,
			fmt.Sprintf("failed to open post %s", postURL), err)
	}
	surface.WaitVisible(ctx, "article, main", e.cfg.ElementWait)

	html, err := surface.PageSource(ctx)
	if err != nil {
		return models.RawPost{}, errors.Wrap(errors.ErrorTypeExtraction, "failed to read post page", err)
	}
	page, err := NewPage(html)
	if err != nil {
		return models.RawPost{}, errors.Wrap(errors.ErrorTypeExtraction, "failed to parse post page", err)
	}

	return models.RawPost{
		Author:       e.author(page),
		PostURL:      postURL,
		TimestampRaw: e.timestamp(page),
		CaptionRaw:   e.caption(page),
		CommentsRaw:  e.comments(page, commentLimit),
	}, nil
}

// author resolves the post author. Falls back to the sentinel author
// when every strategy misses.
func (e *Extractor) author(p *Page) string {
	chain := []Strategy{
		{"ld+json", func(p *Page) (string, bool) {
			return p.ldString("alternateName", "name")
		}},
		{"og:title", func(p *Page) (string, bool) {
			content, ok := p.metaContent("og:title")
			if !ok {
				return "", false
			}
			if m := ogTitleAuthor.FindStringSubmatch(content); len(m) == 2 {
				return m[1], true
			}
			return "", false
		}},
		{"header-link", func(p *Page) (string, bool) {
			href, ok := p.firstAttr("href",
				"header a[href^='/']",
				"article header a[role='link']")
			if !ok {
				return "", false
			}
			name := strings.Trim(href, "/")
			if name == "" || strings.Contains(name, "/") {
				return "", false
			}
			return name, true
		}},
		{"raw-scan", func(p *Page) (string, bool) {
			return p.rawMatch(rawAuthor)
		}},
	}
	return runChain(e.log, "author", p, chain, "unknown_user")
}

// timestamp resolves the raw publication timestamp. Falls back to the
// current moment so downstream cleaning stays total.
func (e *Extractor) timestamp(p *Page) string {
	chain := []Strategy{
		{"ld+json", func(p *Page) (string, bool) {
			return p.ldString("uploadDate", "dateCreated", "datePublished")
		}},
		{"time-attr", func(p *Page) (string, bool) {
			return p.firstAttr("datetime", "time[datetime]")
		}},
		{"raw-scan", func(p *Page) (string, bool) {
			return p.rawMatch(rawTimestamp)
		}},
	}
	return runChain(e.log, "timestamp", p, chain,
		time.Now().UTC().Format(time.RFC3339))
}

// caption resolves the post caption, empty when the post has none.
func (e *Extractor) caption(p *Page) string {
	chain := []Strategy{
		{"ld+json", func(p *Page) (string, bool) {
			return p.ldString("articleBody", "caption", "description")
		}},
		{"og:description", func(p *Page) (string, bool) {
			content, ok := p.metaContent("og:description")
			if !ok {
				return "", false
			}
			// The og:description often leads with engagement counts and
			// quotes the caption after a colon.
			if i := strings.Index(content, ": “"); i >= 0 {
				quoted := content[i+len(": “"):]
				quoted = strings.TrimSuffix(quoted, "”")
				if clean.IsProbableCaption(quoted, e.cfg.MinCaptionLength) {
					return quoted, true
				}
			}
			if ogDescComments.MatchString(content) {
				return "", false
			}
			if clean.IsProbableCaption(content, e.cfg.MinCaptionLength) {
				return content, true
			}
			return "", false
		}},
		{"article-h1", func(p *Page) (string, bool) {
			text, ok := p.firstText("article h1", "main h1")
			if !ok || !clean.IsProbableCaption(text, e.cfg.MinCaptionLength) {
				return "", false
			}
			return text, true
		}},
		{"raw-scan", func(p *Page) (string, bool) {
			return p.rawMatch(rawCaption)
		}},
	}
	return runChain(e.log, "caption", p, chain, "")
}

// commentSelectors are tried in order; the first selector yielding any
// plausible comment wins.
var commentSelectors = []string{
	"article ul ul span",
	"article ul li span",
	"main ul li span",
}

// comments collects up to limit plausible comment texts, preserving
// document order and dropping duplicates.
func (e *Extractor) comments(p *Page, limit int) []string {
	if limit <= 0 {
		return nil
	}
	for _, sel := range commentSelectors {
		var out []string
		seen := make(map[string]struct{})
		p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if !clean.IsProbableComment(text) {
				return true
			}
			if _, dup := seen[text]; dup {
				return true
			}
			seen[text] = struct{}{}
			out = append(out, text)
			return len(out) < limit
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
