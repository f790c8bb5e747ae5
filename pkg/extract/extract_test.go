package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/config"
	"igharvest/pkg/session"
)

// fakeSurface serves canned link sets per scroll round and a scripted
// page-height sequence.
type fakeSurface struct {
	linksByRound [][]string
	heights      []int64
	round        int
	pageHTML     string
	navigated    []string
}

func (f *fakeSurface) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}
func (f *fakeSurface) CurrentURL(context.Context) (string, error)   { return "", nil }
func (f *fakeSurface) PageSource(context.Context) (string, error)   { return f.pageHTML, nil }
func (f *fakeSurface) Exists(context.Context, string) bool          { return false }
func (f *fakeSurface) Texts(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeSurface) Attributes(_ context.Context, _ string, _ string) ([]string, error) {
	i := f.round
	if i >= len(f.linksByRound) {
		i = len(f.linksByRound) - 1
	}
	if i < 0 {
		return nil, nil
	}
	return f.linksByRound[i], nil
}

func (f *fakeSurface) Click(context.Context, string) error            { return nil }
func (f *fakeSurface) SendKeys(context.Context, string, string) error { return nil }
func (f *fakeSurface) Execute(context.Context, string) error          { return nil }

func (f *fakeSurface) ScrollToBottom(context.Context) error {
	f.round++
	return nil
}

func (f *fakeSurface) PageHeight(context.Context) (int64, error) {
	i := f.round
	if i >= len(f.heights) {
		i = len(f.heights) - 1
	}
	if i < 0 {
		return 0, nil
	}
	return f.heights[i], nil
}

func (f *fakeSurface) WaitVisible(context.Context, string, time.Duration) bool { return true }
func (f *fakeSurface) WaitUntil(ctx context.Context, pred func(context.Context) bool, _ time.Duration) bool {
	return pred(ctx)
}
func (f *fakeSurface) Cookies(context.Context) ([]session.Cookie, error)  { return nil, nil }
func (f *fakeSurface) SetCookies(context.Context, []session.Cookie) error { return nil }
func (f *fakeSurface) ClearCookies(context.Context) error                 { return nil }
func (f *fakeSurface) Close() error                                       { return nil }

func testExtractionConfig() *config.ExtractionConfig {
	cfg := config.DefaultConfig().Extraction
	cfg.ScrollSettleDelay = time.Millisecond
	return &cfg
}

func TestDiscoverStopsWhenHeightStalls(t *testing.T) {
	surface := &fakeSurface{
		linksByRound: [][]string{{
			"/p/AAA/", "/p/BBB/", "/reel/CCC/", "/p/DDD/",
		}},
		heights: []int64{1000, 1000, 1000},
	}

	links, err := Discover(context.Background(), surface, testExtractionConfig(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.instagram.com/p/AAA/",
		"https://www.instagram.com/p/BBB/",
		"https://www.instagram.com/reel/CCC/",
		"https://www.instagram.com/p/DDD/",
	}, links)
}

func TestDiscoverStopsAtTarget(t *testing.T) {
	surface := &fakeSurface{
		linksByRound: [][]string{
			{"/p/A/", "/p/B/"},
			{"/p/A/", "/p/B/", "/p/C/", "/p/D/"},
		},
		heights: []int64{1000, 2000, 3000},
	}

	links, err := Discover(context.Background(), surface, testExtractionConfig(), 3)
	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.Equal(t, "https://www.instagram.com/p/C/", links[2])
}

func TestDiscoverIgnoresNonPostLinks(t *testing.T) {
	surface := &fakeSurface{
		linksByRound: [][]string{{
			"/someone/", "/explore/", "/p/REAL/", "https://example.com/p/ext/",
			"javascript:void(0)",
		}},
		heights: []int64{500, 500},
	}

	links, err := Discover(context.Background(), surface, testExtractionConfig(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.instagram.com/p/REAL/",
		"https://example.com/p/ext/",
	}, links)
}

func TestDiscoverRespectsIterationCap(t *testing.T) {
	cfg := testExtractionConfig()
	cfg.MaxScrollIterations = 3

	surface := &fakeSurface{
		linksByRound: [][]string{{"/p/ONLY/"}},
		heights:      []int64{100, 200, 300, 400, 500, 600},
	}

	links, err := Discover(context.Background(), surface, cfg, 10)
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.LessOrEqual(t, surface.round, 3)
}

const postPageHTML = `<!doctype html>
<html><head>
<meta property="og:title" content="Kitchen Diaries (@chef_anna) on Instagram" />
<script type="application/ld+json">
{"@type":"SocialMediaPosting","author":{"alternateName":"chef_anna"},
 "uploadDate":"2024-05-10T08:15:00Z",
 "articleBody":"Sunday bake: sourdough with rosemary and sea salt. Recipe in bio!"}
</script>
</head><body>
<article>
  <header><a href="/chef_anna/">chef_anna</a></header>
  <time datetime="2024-05-10T08:15:00Z">May 10</time>
  <ul>
    <li><span>Like</span></li>
    <li><span>5m</span></li>
    <li><span>That crust looks absolutely perfect, well done!</span></li>
    <li><span>@someone</span></li>
    <li><span>need this recipe right now please</span></li>
    <li><span>That crust looks absolutely perfect, well done!</span></li>
  </ul>
</article>
</body></html>`

func TestExtractPostFields(t *testing.T) {
	surface := &fakeSurface{pageHTML: postPageHTML}
	e := New(testExtractionConfig())

	raw, err := e.ExtractPost(context.Background(), surface, "https://www.instagram.com/p/XYZ/", 5)
	require.NoError(t, err)

	assert.Equal(t, "chef_anna", raw.Author)
	assert.Equal(t, "https://www.instagram.com/p/XYZ/", raw.PostURL)
	assert.Equal(t, "2024-05-10T08:15:00Z", raw.TimestampRaw)
	assert.Equal(t, "Sunday bake: sourdough with rosemary and sea salt. Recipe in bio!", raw.CaptionRaw)
	assert.Equal(t, []string{
		"That crust looks absolutely perfect, well done!",
		"need this recipe right now please",
	}, raw.CommentsRaw)
	assert.Equal(t, []string{"https://www.instagram.com/p/XYZ/"}, surface.navigated)
}

func TestExtractPostDefaultsWhenPageIsBare(t *testing.T) {
	surface := &fakeSurface{pageHTML: "<html><body><p>nothing here</p></body></html>"}
	e := New(testExtractionConfig())

	raw, err := e.ExtractPost(context.Background(), surface, "https://www.instagram.com/p/EMPTY/", 5)
	require.NoError(t, err)

	assert.Equal(t, "unknown_user", raw.Author)
	assert.Empty(t, raw.CaptionRaw)
	assert.Empty(t, raw.CommentsRaw)

	_, perr := time.Parse(time.RFC3339, raw.TimestampRaw)
	assert.NoError(t, perr, "fallback timestamp must be well formed")
}

func TestExtractChainOrderPrefersEmbeddedJSON(t *testing.T) {
	// ld+json and og:title disagree; the embedded document wins.
	html := `<html><head>
<meta property="og:title" content="Someone Else (@meta_user) on Instagram" />
<script type="application/ld+json">{"author":{"alternateName":"json_user"}}</script>
</head><body><article></article></body></html>`

	surface := &fakeSurface{pageHTML: html}
	e := New(testExtractionConfig())

	raw, err := e.ExtractPost(context.Background(), surface, "https://www.instagram.com/p/Q/", 0)
	require.NoError(t, err)
	assert.Equal(t, "json_user", raw.Author)
}
