package main

import (
	"context"
	"fmt"

	"igharvest/pkg/api"
	"igharvest/pkg/auth"
	"igharvest/pkg/browser"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/extract"
	"igharvest/pkg/login"
	"igharvest/pkg/models"
	"igharvest/pkg/pipeline"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/search"
	"igharvest/pkg/session"
	"igharvest/pkg/storage"
)

// harvester assembles the full stack for one run. Each run gets its
// own browser; nothing browser-bound survives between runs.
type harvester struct {
	cfg     *config.Config
	results *storage.Manager
}

func newHarvester(cfg *config.Config) (*harvester, error) {
	results, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}
	return &harvester{cfg: cfg, results: results}, nil
}

// credentials resolves the account list, preferring a per-run override.
func (h *harvester) credentials(override string) ([]auth.Credential, error) {
	raw := override
	if raw == "" {
		raw = h.cfg.Accounts.Credentials
	}
	if raw == "" {
		// Fall through to the secure store when the environment has
		// nothing configured.
		manager, err := auth.NewManager()
		if err == nil {
			stored, err := manager.List()
			if err == nil && len(stored) > 0 {
				return stored, nil
			}
		}
		return nil, errors.New(errors.ErrorTypeConfig,
			"no credentials configured: set INSTAGRAM_ACCOUNTS or run 'igharvest auth add'")
	}

	creds, err := auth.ParseCredentials(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfig, "invalid credential list", err)
	}
	return creds, nil
}

// stack builds the per-run collaborators over a fresh browser surface.
func (h *harvester) stack(ctx context.Context, credsOverride string) (browser.Surface, *login.Manager, *pipeline.Orchestrator, error) {
	creds, err := h.credentials(credsOverride)
	if err != nil {
		return nil, nil, nil, err
	}
	rotator, err := auth.NewRotator(creds)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrorTypeConfig, "failed to build rotation", err)
	}
	sessions, err := session.NewFileStore(h.cfg.Accounts.SessionDir)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrorTypeConfig, "failed to open session store", err)
	}

	surface, err := browser.NewChromeSurface(ctx, &h.cfg.Browser)
	if err != nil {
		return nil, nil, nil, err
	}

	limiter := ratelimit.NewIntervalLimiter(h.cfg.RateLimit.RequestDelay, h.cfg.RateLimit.LoginDelay)
	loginMgr := login.NewManager(rotator, sessions, limiter, &h.cfg.Extraction)
	orch := pipeline.New(surface, extract.New(&h.cfg.Extraction), limiter, h.cfg)
	return surface, loginMgr, orch, nil
}

// RunAccount harvests one profile and persists the result.
func (h *harvester) RunAccount(ctx context.Context, req api.ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
	surface, loginMgr, orch, err := h.stack(ctx, req.Accounts)
	if err != nil {
		return nil, nil, err
	}
	defer surface.Close()

	nav := search.NewAccountNavigator(surface, loginMgr, orch, h.cfg)
	result, summary, err := nav.Run(ctx, req.Account, req.PostCount, req.CommentCount)
	if err != nil {
		return nil, summary, err
	}

	if _, err := h.results.SaveBatch(req.Account, result); err != nil {
		return nil, summary, fmt.Errorf("harvest succeeded but saving failed: %w", err)
	}
	return result, summary, nil
}

// RunLocation harvests a place grid and persists the result.
func (h *harvester) RunLocation(ctx context.Context, place string, postCount, commentCount int, credsOverride string) (*models.BatchResult, error) {
	surface, loginMgr, orch, err := h.stack(ctx, credsOverride)
	if err != nil {
		return nil, err
	}
	defer surface.Close()

	nav := search.NewLocationNavigator(surface, loginMgr, orch, h.cfg)
	result, err := nav.Run(ctx, place, postCount, commentCount)
	if err != nil {
		return nil, err
	}

	if _, err := h.results.SaveBatch("location_"+place, result); err != nil {
		return nil, fmt.Errorf("harvest succeeded but saving failed: %w", err)
	}
	return result, nil
}
