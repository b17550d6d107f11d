package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tristendillon/stager/core/logger"
)

// ContentEntry is the last observed state of one file.
type ContentEntry struct {
	FilePath    string
	ContentHash string
	ModTime     time.Time
	Size        int64
}

type CacheStats struct {
	TotalFiles int
	Hits       int64
	Misses     int64
	HitRate    float64
}

// ContentCache tells whether a file's bytes changed since it was last seen.
// Watch mode uses it to ignore events that only touch metadata.
type ContentCache struct {
	entries map[string]*ContentEntry
	mutex   sync.Mutex
	hits    int64
	misses  int64
}

func NewContentCache() *ContentCache {
	return &ContentCache{
		entries: make(map[string]*ContentEntry),
	}
}

// UpdateContent refreshes the entry for filePath and reports whether its
// content differs from the previous observation. New and deleted files
// count as changed.
func (cc *ContentCache) UpdateContent(filePath string) (bool, error) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := cc.entries[filePath]; exists {
				logger.Debug("ContentCache: File deleted: %s", filePath)
				delete(cc.entries, filePath)
				return true, nil
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if stat.IsDir() {
		return false, nil
	}

	existing, exists := cc.entries[filePath]
	if !exists {
		cc.misses++
		hash, err := calculateFileHash(filePath)
		if err != nil {
			return false, err
		}
		cc.entries[filePath] = &ContentEntry{
			FilePath:    filePath,
			ContentHash: hash,
			ModTime:     stat.ModTime(),
			Size:        stat.Size(),
		}
		logger.Debug("ContentCache: New file detected: %s", filePath)
		return true, nil
	}

	if stat.Size() == existing.Size && stat.ModTime().Equal(existing.ModTime) {
		cc.hits++
		return false, nil
	}

	newHash, err := calculateFileHash(filePath)
	if err != nil {
		return false, err
	}

	existing.ModTime = stat.ModTime()
	existing.Size = stat.Size()
	if newHash == existing.ContentHash {
		logger.Debug("ContentCache: Metadata changed but content same for %s", filePath)
		cc.hits++
		return false, nil
	}

	logger.Debug("ContentCache: Content changed for %s (hash: %s -> %s)", filePath, existing.ContentHash[:8], newHash[:8])
	existing.ContentHash = newHash
	cc.misses++
	return true, nil
}

// Prime records the current state of files without reporting changes.
func (cc *ContentCache) Prime(paths []string) {
	for _, p := range paths {
		if _, err := cc.UpdateContent(p); err != nil {
			logger.Debug("ContentCache: cannot prime %s: %v", p, err)
		}
	}
}

func (cc *ContentCache) GetContent(filePath string) (*ContentEntry, bool) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	entry, exists := cc.entries[filePath]
	if !exists {
		return nil, false
	}
	copied := *entry
	return &copied, true
}

func (cc *ContentCache) GetStats() CacheStats {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	stats := CacheStats{
		TotalFiles: len(cc.entries),
		Hits:       cc.hits,
		Misses:     cc.misses,
	}
	if total := cc.hits + cc.misses; total > 0 {
		stats.HitRate = float64(cc.hits) / float64(total) * 100
	}
	return stats
}

func (cc *ContentCache) Clear() {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	cc.entries = make(map[string]*ContentEntry)
	cc.hits = 0
	cc.misses = 0
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filePath, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// HashFile is the content digest used across stager, exposed for tree comparisons.
func HashFile(filePath string) (string, error) {
	return calculateFileHash(filePath)
}
