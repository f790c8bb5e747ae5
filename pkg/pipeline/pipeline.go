// Package pipeline runs the per-profile harvest: discover post links,
// walk each one through extraction, cleaning, and scoring, and fold
// per-post failures into the batch record instead of aborting it.
package pipeline

import (
	"context"
	"strconv"

	"igharvest/pkg/browser"
	"igharvest/pkg/clean"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/extract"
	"igharvest/pkg/logger"
	"igharvest/pkg/metadata"
	"igharvest/pkg/models"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/retry"
)

// Orchestrator coordinates one harvest over an authenticated surface
// that is already on the target profile grid.
type Orchestrator struct {
	surface   browser.Surface
	extractor *extract.Extractor
	limiter   ratelimit.Limiter
	cfg       *config.Config
	log       logger.Logger
}

// New wires an orchestrator over its collaborators.
func New(surface browser.Surface, extractor *extract.Extractor, limiter ratelimit.Limiter, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		surface:   surface,
		extractor: extractor,
		limiter:   limiter,
		cfg:       cfg,
		log:       logger.GetLogger(),
	}
}

// Harvest discovers up to postCount post links on the current page and
// extracts each one. A post that fails mid-pipeline becomes a batch
// error entry; only discovery failures and context cancellation abort
// the batch.
func (o *Orchestrator) Harvest(ctx context.Context, postCount, commentCount int) (*models.BatchResult, error) {
	result := &models.BatchResult{
		RequestedCount: postCount,
		Posts:          []models.CleanedPost{},
		Errors:         []models.BatchError{},
	}

	links, err := extract.Discover(ctx, o.surface, &o.cfg.Extraction, postCount)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeExtraction, "post discovery failed", err)
	}
	if len(links) == 0 {
		o.log.Warn("no posts discovered")
		return result, nil
	}

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		o.limiter.Wait(ratelimit.ClassRequest)

		post, err := o.harvestOne(ctx, link, commentCount)
		if err != nil {
			if errors.IsTerminal(err) {
				return result, err
			}
			o.log.ErrorWithFields("post failed, continuing batch", map[string]interface{}{
				"url":   link,
				"index": i,
				"error": err.Error(),
			})
			result.Errors = append(result.Errors, models.BatchError{
				PostURL: link,
				Kind:    string(errors.TypeOf(err)),
				Detail:  err.Error(),
			})
			continue
		}
		result.Posts = append(result.Posts, post)
	}

	result.ExtractedCount = len(result.Posts)
	o.log.InfoWithFields("harvest finished", map[string]interface{}{
		"requested": postCount,
		"extracted": result.ExtractedCount,
		"failed":    len(result.Errors),
	})
	return result, nil
}

// harvestOne runs one post through extract, clean, and score. Transient
// navigation failures get one more attempt before the post is written
// off.
func (o *Orchestrator) harvestOne(ctx context.Context, link string, commentCount int) (models.CleanedPost, error) {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2
	retryCfg.Backoff = &retry.ConstantBackoff{Delay: o.cfg.RateLimit.RequestDelay}
	retryCfg.Context = ctx

	raw, err := retry.DoWithResult(func() (models.RawPost, error) {
		return o.extractor.ExtractPost(ctx, o.surface, link, commentCount)
	}, retryCfg)
	if err != nil {
		return models.CleanedPost{}, err
	}
	return Finish(raw), nil
}

// Finish turns a raw extraction into the canonical cleaned and scored
// record.
func Finish(raw models.RawPost) models.CleanedPost {
	author := clean.Author(raw.Author)
	postURL := clean.URL(raw.PostURL)
	caption := clean.Text(raw.CaptionRaw)

	comments := make(map[string]string, len(raw.CommentsRaw))
	idx := 0
	for _, c := range raw.CommentsRaw {
		cleaned := clean.Text(c)
		if cleaned == "" {
			continue
		}
		comments[strconv.Itoa(idx)] = cleaned
		idx++
	}

	return models.CleanedPost{
		Author:       author,
		PostURL:      postURL,
		ReleaseDate:  clean.Timestamp(raw.TimestampRaw),
		Caption:      caption,
		Comments:     comments,
		QualityScore: metadata.QualityScore(author, postURL, caption, comments),
		Metadata:     metadata.Extract(caption, postURL),
	}
}
