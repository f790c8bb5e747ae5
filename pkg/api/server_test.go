package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/errors"
	"igharvest/pkg/models"
)

func emptyResult() *models.BatchResult {
	return &models.BatchResult{
		Posts:  []models.CleanedPost{},
		Errors: []models.BatchError{},
	}
}

func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestScrapeAppliesDefaultsAndRuns(t *testing.T) {
	var got ScrapeRequest
	srv := NewServer(":0", func(_ context.Context, req ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
		got = req
		r := emptyResult()
		r.RequestedCount = req.PostCount
		return r, &models.ProfileSummary{Username: req.Account, Status: models.ProfileAvailable}, nil
	})

	rec := post(t, srv.Handler(), `{"account":"some_profile"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "some_profile", got.Account)
	assert.Equal(t, DefaultPostCount, got.PostCount)
	assert.Equal(t, DefaultCommentCount, got.CommentCount)

	var resp ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, DefaultPostCount, resp.Result.RequestedCount)
	assert.Equal(t, models.ProfileAvailable, resp.Profile.Status)
}

func TestScrapeClampsOversizedCounts(t *testing.T) {
	var got ScrapeRequest
	srv := NewServer(":0", func(_ context.Context, req ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
		got = req
		return emptyResult(), nil, nil
	})

	rec := post(t, srv.Handler(), `{"account":"x","post_count":500,"comment_count":90}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MaxPostCount, got.PostCount)
	assert.Equal(t, MaxCommentCount, got.CommentCount)
}

func TestScrapeRejectsBadRequests(t *testing.T) {
	srv := NewServer(":0", func(context.Context, ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
		t.Fatal("runner must not be called")
		return nil, nil, nil
	})
	handler := srv.Handler()

	assert.Equal(t, http.StatusBadRequest, post(t, handler, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, handler, `{"account":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, handler, `{"account":"x","post_count":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, handler, `not json`).Code)

	req := httptest.NewRequest(http.MethodGet, "/scrape", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScrapeMapsErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"exhausted", errors.ErrAccountsExhausted, http.StatusBadGateway},
		{"config", errors.New(errors.ErrorTypeConfig, "bad credential format"), http.StatusBadRequest},
		{"navigation", errors.New(errors.ErrorTypeNavigation, "page gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", func(context.Context, ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
				return nil, nil, tt.err
			})
			rec := post(t, srv.Handler(), `{"account":"x"}`)
			assert.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Kind)
		})
	}
}

func TestHealth(t *testing.T) {
	srv := NewServer(":0", nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
