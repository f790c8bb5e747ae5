package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"igharvest/pkg/models"
)

// Manager persists batch results under a per-target directory. Every
// run writes a timestamped file and refreshes latest.json, so history
// accumulates while consumers have one stable path to poll.
type Manager struct {
	baseDir string
	mu      sync.Mutex
}

// NewManager creates a result store rooted at baseDir.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// SaveBatch writes the result for a target and returns the path of the
// timestamped file. Writes go through a temp file and rename so a
// crash never leaves a truncated result behind.
func (m *Manager) SaveBatch(target string, result *models.BatchResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Join(m.baseDir, sanitizeTarget(target))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	name := fmt.Sprintf("batch_%s.json", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	if err := writeAtomic(filepath.Join(dir, "latest.json"), data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadLatest returns the most recent result for a target, or nil when
// the target has never been harvested.
func (m *Manager) LoadLatest(target string) (*models.BatchResult, error) {
	path := filepath.Join(m.baseDir, sanitizeTarget(target), "latest.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var result models.BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// History returns the timestamped result files for a target, newest
// first.
func (m *Manager) History(target string) ([]string, error) {
	dir := filepath.Join(m.baseDir, sanitizeTarget(target))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read target directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "batch_") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// BaseDir returns the root of the result store.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize result file: %w", err)
	}
	return nil
}

// sanitizeTarget maps a target name to a safe directory component.
func sanitizeTarget(target string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(target)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_unnamed"
	}
	return b.String()
}
