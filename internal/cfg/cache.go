package cfg

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedLoader parses each cfg file at most once per expiry window. Suites that name the
// same benchmark repeatedly get independent snapshots of one parsed record.
type CachedLoader struct {
	Files *FileLoader
	cache *cache.Cache
}

func NewCachedLoader(files *FileLoader, expiry time.Duration) *CachedLoader {
	return &CachedLoader{
		Files: files,
		cache: cache.New(expiry, 2*expiry),
	}
}

func (l *CachedLoader) Load(label string) (*Record, error) {
	path, err := l.Files.Find(label)
	if err != nil {
		return nil, err
	}
	if data, found := l.cache.Get(path); found {
		if rec, ok := data.(*Record); ok {
			return rec.Snapshot(), nil
		}
	}
	rec, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	l.cache.Set(path, rec, cache.DefaultExpiration)
	return rec.Snapshot(), nil
}

// Forget drops every cached record.
func (l *CachedLoader) Forget() {
	l.cache.Flush()
}
