package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/models"
)

func sampleResult(n int) *models.BatchResult {
	posts := make([]models.CleanedPost, n)
	for i := range posts {
		posts[i] = models.CleanedPost{
			Author:   "writer",
			PostURL:  "https://www.instagram.com/p/X/",
			Comments: map[string]string{},
		}
	}
	return &models.BatchResult{
		RequestedCount: n,
		ExtractedCount: n,
		Posts:          posts,
		Errors:         []models.BatchError{},
	}
}

func TestSaveAndLoadLatest(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := mgr.SaveBatch("some_profile", sampleResult(2))
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := mgr.LoadLatest("some_profile")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.ExtractedCount)
	assert.Len(t, loaded.Posts, 2)
}

func TestLoadLatestMissingTarget(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	loaded, err := mgr.LoadLatest("never_harvested")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLatestTracksNewestRun(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = mgr.SaveBatch("p", sampleResult(1))
	require.NoError(t, err)
	_, err = mgr.SaveBatch("p", sampleResult(3))
	require.NoError(t, err)

	loaded, err := mgr.LoadLatest("p")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.ExtractedCount)
}

func TestSanitizeTarget(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := mgr.SaveBatch("Weird/Name With Spaces!", sampleResult(1))
	require.NoError(t, err)

	rel, err := filepath.Rel(mgr.BaseDir(), path)
	require.NoError(t, err)
	assert.Equal(t, "weird_name_with_spaces_", filepath.Dir(rel))
}

func TestResultFileShape(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := mgr.SaveBatch("shape", sampleResult(1))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "requested_posts")
	assert.Contains(t, decoded, "total_posts_extracted")
	assert.Contains(t, decoded, "results")
	assert.Contains(t, decoded, "errors")
}
