// Package clean normalizes raw extracted field values into their
// canonical forms. Cleaners are total: any input string, however
// malformed, produces a usable value rather than an error.
package clean

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const unknownAuthor = "unknown_user"

var (
	authorDisallowed = regexp.MustCompile(`[^a-zA-Z0-9._]+`)
	whitespaceRun    = regexp.MustCompile(`[ \t]+`)
	newlineRun       = regexp.MustCompile(`\n{3,}`)
	relativeMoment   = regexp.MustCompile(`^\d+\s?[smhdw]$`)
	digitsOnly       = regexp.MustCompile(`^\d+$`)
	loneMention      = regexp.MustCompile(`^@[a-zA-Z0-9._]+$`)
	trailingSlashes  = regexp.MustCompile(`/+$`)
)

// Author normalizes a username. A profile URL captured in place of a
// name is reduced to its username path segment, the leading @ and
// surrounding whitespace go, and runes outside the platform's username
// charset are dropped. Only a value with nothing left falls back to the
// sentinel author. Case is preserved.
func Author(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "instagram.com/"); i >= 0 {
		s = s[i+len("instagram.com/"):]
		if j := strings.IndexAny(s, "/?#"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimPrefix(s, "@")
	s = authorDisallowed.ReplaceAllString(s, "")
	if s == "" {
		return unknownAuthor
	}
	return s
}

// URL canonicalizes a post link: whitespace trimmed, percent-encoding
// decoded, tracking query and fragment stripped, relative post and reel
// paths made absolute, exactly one trailing slash. Idempotent.
func URL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if strings.HasPrefix(s, "/p/") || strings.HasPrefix(s, "/reel/") {
		s = "https://www.instagram.com" + s
	}
	s = trailingSlashes.ReplaceAllString(s, "")
	if s == "" {
		return s
	}
	return s + "/"
}

// Timestamp normalizes a raw timestamp into RFC 3339 UTC. It accepts
// ISO-8601 with or without zone, epoch seconds, and falls back to the
// current time for anything unparseable, so it is total.
func Timestamp(raw string) string {
	s := strings.TrimSpace(raw)

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}

	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil && epoch > 0 {
		return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
	}

	return time.Now().UTC().Format(time.RFC3339)
}

// Text normalizes free text: entities decoded, Unicode composed to NFKC,
// horizontal whitespace collapsed, blank-line runs capped at one.
func Text(raw string) string {
	s := html.UnescapeString(raw)
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = whitespaceRun.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// uiLabels are interface strings that show up inside comment regions
// but are never comments themselves.
var uiLabels = map[string]struct{}{
	"like":               {},
	"reply":              {},
	"likes":              {},
	"replies":            {},
	"view replies":       {},
	"hide replies":       {},
	"more":               {},
	"less":               {},
	"see more":           {},
	"see all":            {},
	"verified":           {},
	"follow":             {},
	"following":          {},
	"edited":             {},
	"translate":          {},
	"see translation":    {},
	"load more comments": {},
}

// Blocks past these bounds read like captions leaked into the comment
// region, not comments.
const (
	maxCommentRunes    = 300
	maxCommentNewlines = 2
)

// IsProbableComment reports whether a text block plausibly is a user
// comment rather than interface chrome or a leaked caption.
func IsProbableComment(text string) bool {
	s := strings.TrimSpace(text)
	if len([]rune(s)) < 3 || len([]rune(s)) > maxCommentRunes {
		return false
	}
	if strings.Count(s, "\n") > maxCommentNewlines {
		return false
	}
	return !isChrome(s)
}

// IsProbableCaption reports whether a text block plausibly is a post
// caption. Captions share the chrome filter but must clear a minimum
// length instead of the comment's upper bound; long captions are fine.
func IsProbableCaption(text string, minLength int) bool {
	s := strings.TrimSpace(text)
	if len([]rune(s)) < minLength {
		return false
	}
	return !isChrome(s)
}

// isChrome reports whether the text is interface chrome rather than
// user-authored content.
func isChrome(s string) bool {
	lower := strings.ToLower(s)
	if _, ok := uiLabels[lower]; ok {
		return true
	}
	if strings.HasPrefix(lower, "view all ") || strings.HasPrefix(lower, "view replies") {
		return true
	}
	if digitsOnly.MatchString(s) {
		return true
	}
	if relativeMoment.MatchString(lower) {
		return true
	}
	if loneMention.MatchString(s) {
		return true
	}
	return isGlyphRun(s)
}

// isGlyphRun reports whether the string is nothing but punctuation and
// symbols (separator dots, ellipses, bullets).
func isGlyphRun(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
