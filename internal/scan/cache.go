package scan

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"toolshed/internal/store"
)

// DefaultCacheSize bounds the number of parsed markdown files kept.
const DefaultCacheSize = 512

type cacheEntry struct {
	modTime time.Time
	size    int64
	result  markdownResult
}

// markdownResult is a read-and-parse outcome for one file.
type markdownResult struct {
	present bool
	doc     Document
	// failure is a read error, parseErr a front matter error.
	failure  string
	parseErr error
}

// markdownCache memoizes markdown parses keyed by path. An entry is only
// reused while the file's modification time and size are unchanged.
type markdownCache struct {
	files *store.FileStore
	cache *lru.Cache[string, cacheEntry]
}

func newMarkdownCache(files *store.FileStore, size int) *markdownCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only errors on non-positive size which we guard above.
	cache, _ := lru.New[string, cacheEntry](size)
	return &markdownCache{files: files, cache: cache}
}

func (c *markdownCache) load(path string) markdownResult {
	info, statErr := os.Stat(path)
	if statErr == nil {
		if e, ok := c.cache.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			return e.result
		}
	}

	res := c.files.ReadText(path)
	var out markdownResult
	switch {
	case res.Failure != nil:
		out.failure = res.Failure.Message
	case !res.Present:
	default:
		out.present = true
		out.doc, out.parseErr = ParseMarkdown(res.Data)
	}

	if statErr == nil && res.Failure == nil && res.Present {
		c.cache.Add(path, cacheEntry{modTime: info.ModTime(), size: info.Size(), result: out})
	} else {
		c.cache.Remove(path)
	}
	return out
}

// Len reports the number of cached parses.
func (c *markdownCache) Len() int { return c.cache.Len() }
