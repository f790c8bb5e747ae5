package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/config"
	"igharvest/pkg/extract"
	"igharvest/pkg/models"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/session"
)

// gridSurface serves a fixed profile grid and per-post pages. URLs in
// failNavigation refuse to load.
type gridSurface struct {
	links          []string
	pages          map[string]string
	failNavigation map[string]bool
	navigated      []string
	current        string
}

func (g *gridSurface) Navigate(_ context.Context, url string) error {
	if g.failNavigation[url] {
		return fmt.Errorf("net::ERR_CONNECTION_RESET loading %s", url)
	}
	g.navigated = append(g.navigated, url)
	g.current = url
	return nil
}
func (g *gridSurface) CurrentURL(context.Context) (string, error) { return g.current, nil }
func (g *gridSurface) PageSource(context.Context) (string, error) {
	return g.pages[g.current], nil
}
func (g *gridSurface) Exists(context.Context, string) bool             { return false }
func (g *gridSurface) Texts(context.Context, string) ([]string, error) { return nil, nil }
func (g *gridSurface) Attributes(_ context.Context, sel, _ string) ([]string, error) {
	if strings.Contains(sel, "a[href") {
		return g.links, nil
	}
	return nil, nil
}
func (g *gridSurface) Click(context.Context, string) error             { return nil }
func (g *gridSurface) SendKeys(context.Context, string, string) error  { return nil }
func (g *gridSurface) Execute(context.Context, string) error           { return nil }
func (g *gridSurface) ScrollToBottom(context.Context) error            { return nil }
func (g *gridSurface) PageHeight(context.Context) (int64, error)       { return 1000, nil }
func (g *gridSurface) WaitVisible(context.Context, string, time.Duration) bool { return true }
func (g *gridSurface) WaitUntil(ctx context.Context, pred func(context.Context) bool, _ time.Duration) bool {
	return pred(ctx)
}
func (g *gridSurface) Cookies(context.Context) ([]session.Cookie, error)  { return nil, nil }
func (g *gridSurface) SetCookies(context.Context, []session.Cookie) error { return nil }
func (g *gridSurface) ClearCookies(context.Context) error                 { return nil }
func (g *gridSurface) Close() error                                       { return nil }

func postPage(author, caption string) string {
	return fmt.Sprintf(`<html><head>
<script type="application/ld+json">
{"author":{"alternateName":%q},"uploadDate":"2024-06-01T09:00:00Z","articleBody":%q}
</script>
</head><body><article>
<ul>
<li><span>this is such a great shot, love the colors</span></li>
<li><span>where was this taken? looks stunning</span></li>
</ul>
</article></body></html>`, author, caption)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RateLimit.RequestDelay = 0
	cfg.RateLimit.LoginDelay = 0
	cfg.Extraction.ScrollSettleDelay = time.Millisecond
	return cfg
}

func newTestOrchestrator(surface *gridSurface, cfg *config.Config) *Orchestrator {
	return New(surface, extract.New(&cfg.Extraction), ratelimit.NewIntervalLimiter(0, 0), cfg)
}

func TestHarvestFullBatch(t *testing.T) {
	caption := "Golden hour at the pier, one of those evenings you do not forget."
	surface := &gridSurface{
		links: []string{"/p/ONE/", "/p/TWO/", "/reel/THREE/"},
		pages: map[string]string{
			"https://www.instagram.com/p/ONE/":      postPage("sea_walker", caption),
			"https://www.instagram.com/p/TWO/":      postPage("sea_walker", caption),
			"https://www.instagram.com/reel/THREE/": postPage("sea_walker", caption),
		},
	}

	result, err := newTestOrchestrator(surface, testConfig()).Harvest(context.Background(), 3, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RequestedCount)
	assert.Equal(t, 3, result.ExtractedCount)
	assert.Len(t, result.Posts, 3)
	assert.Empty(t, result.Errors)

	first := result.Posts[0]
	assert.Equal(t, "sea_walker", first.Author)
	assert.Equal(t, "https://www.instagram.com/p/ONE/", first.PostURL)
	assert.Equal(t, "2024-06-01T09:00:00Z", first.ReleaseDate)
	assert.Equal(t, caption, first.Caption)
	assert.Len(t, first.Comments, 2)
	assert.Equal(t, models.PostTypePost, first.Metadata.PostType)
	assert.Positive(t, first.QualityScore)

	third := result.Posts[2]
	assert.Equal(t, models.PostTypeReel, third.Metadata.PostType)
}

func TestHarvestContinuesPastFailedPost(t *testing.T) {
	caption := "Weekend market haul, the tomatoes were too good to pass up."
	links := []string{"/p/A/", "/p/B/", "/p/C/", "/p/D/", "/p/E/"}
	pages := map[string]string{}
	for _, l := range links {
		pages["https://www.instagram.com"+l] = postPage("marketfan", caption)
	}
	surface := &gridSurface{
		links: links,
		pages: pages,
		failNavigation: map[string]bool{
			"https://www.instagram.com/p/C/": true,
		},
	}

	result, err := newTestOrchestrator(surface, testConfig()).Harvest(context.Background(), 5, 3)
	require.NoError(t, err)

	assert.Equal(t, 4, result.ExtractedCount)
	assert.Len(t, result.Posts, 4)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "https://www.instagram.com/p/C/", result.Errors[0].PostURL)
	assert.Equal(t, "navigation", result.Errors[0].Kind)
	assert.NotEmpty(t, result.Errors[0].Detail)
}

func TestHarvestEmptyProfile(t *testing.T) {
	surface := &gridSurface{}

	result, err := newTestOrchestrator(surface, testConfig()).Harvest(context.Background(), 5, 3)
	require.NoError(t, err)
	assert.Zero(t, result.ExtractedCount)
	assert.Empty(t, result.Posts)
	assert.Empty(t, result.Errors)
}

func TestHarvestHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surface := &gridSurface{links: []string{"/p/A/"}}
	_, err := newTestOrchestrator(surface, testConfig()).Harvest(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFinishShapesComments(t *testing.T) {
	post := Finish(models.RawPost{
		Author:       "@Some_User",
		PostURL:      "https://www.instagram.com/p/X/?igsh=abc",
		TimestampRaw: "1709296200",
		CaptionRaw:   "Hello   world",
		CommentsRaw:  []string{"first comment here", "", "second comment here"},
	})

	assert.Equal(t, "Some_User", post.Author)
	assert.Equal(t, "https://www.instagram.com/p/X/", post.PostURL)
	assert.Equal(t, "2024-03-01T12:30:00Z", post.ReleaseDate)
	assert.Equal(t, "Hello world", post.Caption)
	assert.Equal(t, map[string]string{
		"0": "first comment here",
		"1": "second comment here",
	}, post.Comments)
}
