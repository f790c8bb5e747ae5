// Package api exposes the harvest over HTTP: a scrape trigger and a
// health probe. It is a thin validation shell; all harvesting goes
// through the injected runner.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
)

// Request bounds. Larger asks are clamped at validation, not silently
// truncated mid-run.
const (
	DefaultPostCount    = 10
	DefaultCommentCount = 5
	MaxPostCount        = 50
	MaxCommentCount     = 20
)

// ScrapeRequest is the POST /scrape body.
type ScrapeRequest struct {
	Account      string `json:"account"`
	PostCount    int    `json:"post_count"`
	CommentCount int    `json:"comment_count"`

	// Accounts optionally overrides the configured credential list for
	// this run, in the same username:password[:totp] format.
	Accounts string `json:"accounts,omitempty"`
}

// ScrapeResponse is the POST /scrape reply.
type ScrapeResponse struct {
	Profile *models.ProfileSummary `json:"profile,omitempty"`
	Result  *models.BatchResult    `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Runner executes one validated harvest.
type Runner func(ctx context.Context, req ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error)

// Server is the HTTP trigger. One harvest runs at a time; a browser
// session cannot be shared.
type Server struct {
	addr   string
	runner Runner
	log    logger.Logger

	mu sync.Mutex
}

// NewServer wires the trigger over a runner.
func NewServer(addr string, runner Runner) *Server {
	return &Server{
		addr:   addr,
		runner: runner,
		log:    logger.GetLogger(),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scrape", s.handleScrape)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe blocks serving the trigger until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.InfoWithFields("http trigger listening", map[string]interface{}{
		"addr": s.addr,
	})
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST required"})
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if !s.mu.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a harvest is already running"})
		return
	}
	defer s.mu.Unlock()

	s.log.InfoWithFields("scrape triggered", map[string]interface{}{
		"account":       req.Account,
		"post_count":    req.PostCount,
		"comment_count": req.CommentCount,
	})

	result, profile, err := s.runner(r.Context(), req)
	if err != nil {
		kind := errors.TypeOf(err)
		status := http.StatusInternalServerError
		switch kind {
		case errors.ErrorTypeConfig:
			status = http.StatusBadRequest
		case errors.ErrorTypeExhausted:
			status = http.StatusBadGateway
		}
		s.log.WithError(err).Error("scrape failed")
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}

	writeJSON(w, http.StatusOK, ScrapeResponse{Profile: profile, Result: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "GET required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validate normalizes the request in place: missing counts take the
// defaults, oversized counts clamp to the limits.
func (r *ScrapeRequest) validate() error {
	r.Account = strings.TrimSpace(r.Account)
	if r.Account == "" {
		return fmt.Errorf("account is required")
	}
	if r.PostCount < 0 || r.CommentCount < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if r.PostCount == 0 {
		r.PostCount = DefaultPostCount
	}
	if r.CommentCount == 0 {
		r.CommentCount = DefaultCommentCount
	}
	if r.PostCount > MaxPostCount {
		r.PostCount = MaxPostCount
	}
	if r.CommentCount > MaxCommentCount {
		r.CommentCount = MaxCommentCount
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
