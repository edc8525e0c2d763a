// Package expressions manages the weekly expressions mp3 catalog: reference
// recordings on disk, assigned to weeks by cycling the alphabetical listing.
package expressions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

var (
	ErrNoMP3Files  = errors.New("no mp3 files in the catalog")
	ErrMP3NotFound = errors.New("mp3 file not found")
)

const (
	listingCacheKey = "expressions-mp3-listing"
	// listing cache expire, in seconds
	listingCacheExpire = 5 * 60
)

type Catalog struct {
	dir   string
	cache *freecache.Cache
}

func NewCatalog(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, errors.New("mp3 catalog dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mp3 catalog dir: %w", err)
	}

	megabyte := 1024 * 1024
	return &Catalog{
		dir:   dir,
		cache: freecache.NewCache(megabyte),
	}, nil
}

// Files returns the mp3 filenames in alphabetical order. The directory scan
// is cached so week assignment does not hit the disk on every request.
func (c *Catalog) Files() ([]string, error) {
	if listingBytes, err := c.cache.Get([]byte(listingCacheKey)); err == nil {
		var files []string
		if err := json.Unmarshal(listingBytes, &files); err == nil {
			return files, nil
		}
		log.Errorf("failed to unmarshal cached mp3 listing: %s", err)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read mp3 catalog dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if listingBytes, err := json.Marshal(files); err == nil {
		if err := c.cache.Set([]byte(listingCacheKey), listingBytes, listingCacheExpire); err != nil {
			log.Errorf("failed to cache mp3 listing: %s", err)
		}
	}

	return files, nil
}

// Invalidate drops the cached listing, for when files were added or removed.
func (c *Catalog) Invalidate() {
	c.cache.Del([]byte(listingCacheKey))
}

// FileForWeek assigns one mp3 to a week: the alphabetical listing cycled by
// week number, so week 1 gets the first file and the assignment wraps around.
func (c *Catalog) FileForWeek(key weekcal.WeekKey) (string, error) {
	files, err := c.Files()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoMP3Files
	}

	idx := (key.Week - 1) % len(files)
	if idx < 0 {
		idx += len(files)
	}
	return files[idx], nil
}

// NextFile returns the file after the given one in the cycle.
func (c *Catalog) NextFile(current string) (string, error) {
	files, err := c.Files()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoMP3Files
	}

	for i, f := range files {
		if f == current {
			return files[(i+1)%len(files)], nil
		}
	}
	// unknown current file, start the cycle over
	return files[0], nil
}

// Path resolves a catalog filename to its absolute path, rejecting anything
// that points outside the catalog dir.
func (c *Catalog) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", ErrMP3NotFound
	}
	full := filepath.Join(c.dir, filename)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrMP3NotFound
		}
		return "", err
	}
	return full, nil
}
