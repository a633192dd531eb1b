package imaging

import (
	"context"
	"errors"
	"image"
	"sync"
)

// LoadFunc produces a decoded image for a cache miss.
type LoadFunc func() (image.Image, error)

// ImageCache provides thread-safe caching of decoded images to avoid redundant
// reads and downloads while a batch is processed.
//
// Entries are keyed by an opaque reference string (typically the resolved
// image URL). Both successes and failures are cached: once an image has failed
// to load, later Load() calls for the same key return the same error without
// retrying. Cancellation errors are never cached.
//
// ImageCache is safe for concurrent use by multiple goroutines. Two goroutines
// missing on the same key at the same time may both run their LoadFunc; the
// last result wins.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). The export pipeline clears its cache after every task. Long-lived
// caches use NewBoundedImageCache, which drops the oldest entry once the
// limit is reached.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load(src.URL, func() (image.Image, error) {
//	    return resolver.Open(ctx, src, false)
//	})
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	// limit caps len(entries) when positive; order lists keys oldest first.
	limit int
	order []string
}

type cacheEntry struct {
	img image.Image
	err error
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		entries: make(map[string]cacheEntry),
	}
}

// NewBoundedImageCache creates a cache holding at most limit entries. A
// limit below 1 means unbounded.
func NewBoundedImageCache(limit int) *ImageCache {
	c := NewImageCache()
	if limit > 0 {
		c.limit = limit
	}
	return c
}

// Load returns the cached image for key, calling load on a miss.
//
// Parameters:
//   - key: Cache key. Different keys for the same image produce separate
//     entries.
//   - load: Called at most once per key unless the previous attempt was
//     cancelled.
//
// Returns the decoded image, or the (possibly cached) error from load.
func (c *ImageCache) Load(key string, load LoadFunc) (image.Image, error) {
	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return e.img, e.err
	}
	c.mu.RUnlock()

	img, err := load()
	if err != nil && errors.Is(err, context.Canceled) {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{img: img, err: err}
	for c.limit > 0 && len(c.order) > c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.mu.Unlock()

	return img, err
}

// Len returns the number of cached entries, including cached failures.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific entry from the cache.
// If the key is not in the cache, this method does nothing.
func (c *ImageCache) Evict(key string) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// Dimensions returns the pixel size of an image.
func Dimensions(img image.Image) DimensionsResult {
	bounds := img.Bounds()
	return DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}

// IsSingleChannel reports whether an image stores one luminance channel
// natively. Color, paletted and alpha-carrying images are not single-channel,
// even when every pixel happens to be gray.
func IsSingleChannel(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
