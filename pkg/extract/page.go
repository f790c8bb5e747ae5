// Package extract pulls post fields out of rendered profile and post
// pages. Every field runs through an ordered chain of strategies, most
// resilient first, so a markup change degrades extraction instead of
// breaking it.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed snapshot of one rendered document. Strategies query
// it without touching the live surface, so one navigation serves every
// field chain.
type Page struct {
	html string
	doc  *goquery.Document

	// ldJSON holds every parsed application/ld+json block on the page.
	ldJSON []map[string]interface{}
}

// NewPage parses a rendered document into a queryable snapshot.
func NewPage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	p := &Page{html: html, doc: doc}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var block map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &block); err == nil {
			p.ldJSON = append(p.ldJSON, block)
		}
	})
	return p, nil
}

// ldString walks the parsed ld+json blocks for the first string value
// under any of the given keys, checking nested "author" objects too.
func (p *Page) ldString(keys ...string) (string, bool) {
	for _, block := range p.ldJSON {
		for _, key := range keys {
			if v, ok := stringField(block, key); ok {
				return v, true
			}
			if author, ok := block["author"].(map[string]interface{}); ok {
				if v, ok := stringField(author, key); ok {
					return v, true
				}
			}
		}
	}
	return "", false
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// metaContent returns the content attribute of the first matching meta
// tag.
func (p *Page) metaContent(property string) (string, bool) {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)
	content, exists := p.doc.Find(sel).First().Attr("content")
	content = strings.TrimSpace(content)
	return content, exists && content != ""
}

// firstText returns the trimmed text of the first node matching any of
// the selectors.
func (p *Page) firstText(selectors ...string) (string, bool) {
	for _, sel := range selectors {
		node := p.doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

// firstAttr returns the named attribute of the first node matching any
// of the selectors.
func (p *Page) firstAttr(attr string, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		if v, ok := p.doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// rawMatch scans the raw document text with a regex and returns the
// first capture group. Last-resort strategy for values that only live
// inside inline script payloads.
func (p *Page) rawMatch(re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(p.html)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
