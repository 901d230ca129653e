package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"topicmon/internal/core"
)

// FileStore keeps artifacts as JSON files under a data directory:
//
//	raw/{date}/articles_{HHMM}.json
//	processed/{date}/topics_{slot}.json
//	processed/{date}/heat_scores_{slot}.json
type FileStore struct {
	dataDir string
}

var _ ArtifactRepository = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dataDir
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

// SaveRawArticles writes raw/{date}/articles_{HHMM}.json using the fetch time
func (s *FileStore) SaveRawArticles(date string, raw RawArticles) (string, error) {
	name := fmt.Sprintf("articles_%s.json", raw.Metadata.FetchTime.Format("1504"))
	return s.write(filepath.Join(s.dataDir, "raw", date, name), raw)
}

// LoadRawArticles reads the snapshot taken at hhmm, or the latest one of the day
func (s *FileStore) LoadRawArticles(date, hhmm string) (*RawArticles, error) {
	dir := filepath.Join(s.dataDir, "raw", date)

	if hhmm == "" {
		latest, err := latestSnapshot(dir)
		if err != nil {
			return nil, err
		}
		hhmm = latest
	}

	var raw RawArticles
	if err := s.read(filepath.Join(dir, fmt.Sprintf("articles_%s.json", hhmm)), &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// SaveTopics writes processed/{date}/topics_{slot}.json
func (s *FileStore) SaveTopics(date string, slot core.TimeSlot, topics TopicsFile) (string, error) {
	return s.write(s.processedPath(date, "topics", slot), topics)
}

// LoadTopics reads processed/{date}/topics_{slot}.json
func (s *FileStore) LoadTopics(date string, slot core.TimeSlot) (*TopicsFile, error) {
	var topics TopicsFile
	if err := s.read(s.processedPath(date, "topics", slot), &topics); err != nil {
		return nil, err
	}
	return &topics, nil
}

// SaveHeatScores writes processed/{date}/heat_scores_{slot}.json
func (s *FileStore) SaveHeatScores(date string, slot core.TimeSlot, scores HeatScores) (string, error) {
	return s.write(s.processedPath(date, "heat_scores", slot), scores)
}

// LoadHeatScores reads processed/{date}/heat_scores_{slot}.json
func (s *FileStore) LoadHeatScores(date string, slot core.TimeSlot) (*HeatScores, error) {
	var scores HeatScores
	if err := s.read(s.processedPath(date, "heat_scores", slot), &scores); err != nil {
		return nil, err
	}
	return &scores, nil
}

func (s *FileStore) processedPath(date, kind string, slot core.TimeSlot) string {
	return filepath.Join(s.dataDir, "processed", date, fmt.Sprintf("%s_%s.json", kind, slot))
}

// write marshals v and replaces path atomically.
func (s *FileStore) write(path string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}

func (s *FileStore) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// latestSnapshot returns the HHMM of the newest raw snapshot in dir.
func latestSnapshot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var stamps []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "articles_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamps = append(stamps, strings.TrimSuffix(strings.TrimPrefix(name, "articles_"), ".json"))
	}
	if len(stamps) == 0 {
		return "", fmt.Errorf("%w: no snapshots in %s", ErrNotFound, dir)
	}
	sort.Strings(stamps)
	return stamps[len(stamps)-1], nil
}
