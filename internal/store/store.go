package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"topicmon/internal/core"
)

// DefaultHotEntries is the size of the in-memory layer in front of SQLite.
const DefaultHotEntries = 512

// Store represents the SQLite-based caching store
type Store struct {
	db   *sql.DB
	path string
	hot  *lru.Cache[string, hotEntry]
	ttl  time.Duration
	now  func() time.Time
}

// hotEntry is an in-memory annotation with the time it was generated.
type hotEntry struct {
	annotation core.TopicAnnotation
	generated  time.Time
}

// NewStore creates a new store instance with SQLite database. A zero ttl
// keeps cached annotations forever.
func NewStore(dataDir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "topicmon.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	hot, err := lru.New[string, hotEntry](DefaultHotEntries)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
		hot:  hot,
		ttl:  ttl,
		now:  time.Now,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	// Topic annotations keyed by article link and content hash
	annotationsTable := `
	CREATE TABLE IF NOT EXISTS annotations (
		link TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		main_topics TEXT,
		category TEXT,
		keywords TEXT,
		discussion_depth TEXT,
		date_generated DATETIME,
		PRIMARY KEY (link, content_hash)
	);`

	// One row per pipeline run
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_date TEXT,
		slot TEXT,
		final_stage TEXT,
		mode TEXT,
		articles INTEGER,
		clusters INTEGER,
		abort_reason TEXT,
		started_at DATETIME,
		finished_at DATETIME
	);`

	tables := []string{annotationsTable, runsTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CacheAnnotation stores the extraction result for an article
func (s *Store) CacheAnnotation(article core.Article, annotation core.TopicAnnotation) error {
	hash := ContentHash(article)

	topics, _ := json.Marshal(annotation.MainTopics)
	keywords, _ := json.Marshal(annotation.Keywords)
	depth, _ := json.Marshal(annotation.DiscussionDepth)

	query := `
	INSERT OR REPLACE INTO annotations
	(link, content_hash, main_topics, category, keywords, discussion_depth, date_generated)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	generated := s.now().UTC()
	_, err := s.db.Exec(query,
		article.Link,
		hash,
		string(topics),
		annotation.Category,
		string(keywords),
		string(depth),
		generated,
	)
	if err != nil {
		return fmt.Errorf("failed to cache annotation: %w", err)
	}

	s.hot.Add(cacheKey(article.Link, hash), hotEntry{annotation: annotation, generated: generated})
	return nil
}

// GetCachedAnnotation returns the cached annotation for an article whose
// content is unchanged and whose entry has not expired.
func (s *Store) GetCachedAnnotation(article core.Article) (core.TopicAnnotation, bool, error) {
	hash := ContentHash(article)
	key := cacheKey(article.Link, hash)

	if entry, ok := s.hot.Get(key); ok {
		if !s.expired(entry.generated) {
			return entry.annotation, true, nil
		}
		s.hot.Remove(key)
	}

	query := `
	SELECT main_topics, category, keywords, discussion_depth, date_generated
	FROM annotations
	WHERE link = ? AND content_hash = ?`

	var (
		topics, category, keywords, depth string
		generated                         time.Time
	)
	err := s.db.QueryRow(query, article.Link, hash).Scan(&topics, &category, &keywords, &depth, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TopicAnnotation{}, false, nil
	}
	if err != nil {
		return core.TopicAnnotation{}, false, fmt.Errorf("failed to read cached annotation: %w", err)
	}
	if s.expired(generated) {
		return core.TopicAnnotation{}, false, nil
	}

	annotation := core.TopicAnnotation{Category: category}
	if err := json.Unmarshal([]byte(topics), &annotation.MainTopics); err != nil {
		return core.TopicAnnotation{}, false, fmt.Errorf("corrupt cached topics for %s: %w", article.Link, err)
	}
	if err := json.Unmarshal([]byte(keywords), &annotation.Keywords); err != nil {
		return core.TopicAnnotation{}, false, fmt.Errorf("corrupt cached keywords for %s: %w", article.Link, err)
	}
	if err := json.Unmarshal([]byte(depth), &annotation.DiscussionDepth); err != nil {
		return core.TopicAnnotation{}, false, fmt.Errorf("corrupt cached depth for %s: %w", article.Link, err)
	}

	s.hot.Add(key, hotEntry{annotation: annotation, generated: generated})
	return annotation, true, nil
}

func (s *Store) expired(generated time.Time) bool {
	return s.ttl > 0 && s.now().UTC().Sub(generated) > s.ttl
}

// RunRecord is the stored summary of one pipeline run.
type RunRecord struct {
	ID          string
	Date        string
	Slot        string
	FinalStage  string
	Mode        string
	Articles    int
	Clusters    int
	AbortReason string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RecordRun stores the outcome of a pipeline run
func (s *Store) RecordRun(run RunRecord) error {
	query := `
	INSERT OR REPLACE INTO runs
	(id, run_date, slot, final_stage, mode, articles, clusters, abort_reason, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		run.ID,
		run.Date,
		run.Slot,
		run.FinalStage,
		run.Mode,
		run.Articles,
		run.Clusters,
		run.AbortReason,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	query := `
	SELECT id, run_date, slot, final_stage, mode, articles, clusters, abort_reason, started_at, finished_at
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.Slot, &r.FinalStage, &r.Mode, &r.Articles, &r.Clusters, &r.AbortReason, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CacheStats holds cache statistics
type CacheStats struct {
	AnnotationCount int
	ExpiredCount    int
	RunCount        int
	HotEntries      int
	CacheSize       int64
	LastUpdated     time.Time
}

// GetCacheStats returns statistics about the cache
func (s *Store) GetCacheStats() (*CacheStats, error) {
	stats := &CacheStats{HotEntries: s.hot.Len()}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM annotations": &stats.AnnotationCount,
		"SELECT COUNT(*) FROM runs":        &stats.RunCount,
	}

	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if s.ttl > 0 {
		cutoff := s.now().UTC().Add(-s.ttl)
		if err := s.db.QueryRow("SELECT COUNT(*) FROM annotations WHERE date_generated < ?", cutoff).Scan(&stats.ExpiredCount); err != nil {
			return nil, fmt.Errorf("failed to count expired annotations: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// ClearCache removes all cached annotations. Run history is kept.
func (s *Store) ClearCache() error {
	if _, err := s.db.Exec("DELETE FROM annotations"); err != nil {
		return fmt.Errorf("failed to clear annotations table: %w", err)
	}
	s.hot.Purge()

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// CleanupExpired removes annotations older than the TTL and returns how many were removed
func (s *Store) CleanupExpired() (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	res, err := s.db.Exec("DELETE FROM annotations WHERE date_generated < ?", s.now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired annotations: %w", err)
	}
	s.hot.Purge()
	return res.RowsAffected()
}

// ContentHash fingerprints the article fields the extraction prompt reads.
func ContentHash(article core.Article) string {
	h := sha256.New()
	h.Write([]byte(article.Title))
	h.Write([]byte{0})
	h.Write([]byte(article.Summary))
	h.Write([]byte{0})
	h.Write([]byte(article.Content))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func cacheKey(link, hash string) string {
	return link + "#" + hash
}
