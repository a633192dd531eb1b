// Package source maps opaque image references from annotation tasks to
// readable locations and decodes them.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reference prefixes recognised by Resolve.
const (
	uploadScheme = "upload://"
	fileScheme   = "file://"
	dataScheme   = "data:"
)

// DefaultFetchTimeout bounds a single remote image download.
const DefaultFetchTimeout = 30 * time.Second

// ErrUnavailable marks an image that could not be read or decoded. It is not
// fatal: callers skip pixel statistics and keep the geometry.
var ErrUnavailable = errors.New("image unavailable")

// Source is a resolved image reference.
type Source struct {
	// URL is the normalized location (file://, data:, http(s):// or the raw
	// reference when nothing else applied).
	URL string `json:"url"`

	// Path is the local filesystem path when one is known.
	Path string `json:"path,omitempty"`

	// Filename is a best-effort display name used to group exported rows.
	Filename string `json:"filename"`
}

// StorageResolver translates cloud storage references (s3://, gs://, ...)
// into fetchable URLs, typically presigned. It returns an empty string when the
// reference is not one it handles.
type StorageResolver interface {
	ResolveURI(ctx context.Context, raw string) (string, error)
}

// Options configures a Resolver.
type Options struct {
	// MediaRoot and UploadDir locate upload:// references on disk.
	MediaRoot string
	UploadDir string

	// Hostname is prepended to host-relative references such as
	// "/data/upload/1/a.png".
	Hostname string

	// AuthToken is sent as "Authorization: Token <token>" on remote fetches.
	AuthToken string

	// FetchTimeout bounds each remote download. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration

	// Storage optionally translates storage URIs.
	Storage StorageResolver

	// HTTPClient is used for remote fetches. Nil means a default client.
	HTTPClient *http.Client
}

// Resolver classifies and opens image references.
type Resolver struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options, logger *zap.Logger) *Resolver {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{opts: opts, client: client, logger: logger}
}

// Resolve classifies a raw reference. The checks run in this order:
//
//  1. upload://rel, mapped under MediaRoot/UploadDir
//  2. an absolute filesystem path that exists
//  3. a storage URI the StorageResolver can translate
//  4. an inline data: URI
//  5. a file:// URI
//  6. an http(s) URL
//  7. a host-relative path, when Hostname is configured
//  8. anything else, kept as-is
//
// Resolve never fails; unusable references surface later as ErrUnavailable
// from Open.
func (r *Resolver) Resolve(ctx context.Context, raw string) Source {
	if rel, ok := strings.CutPrefix(raw, uploadScheme); ok {
		local := filepath.Join(r.opts.MediaRoot, r.opts.UploadDir, rel)
		return Source{URL: raw, Path: local, Filename: filepath.Base(local)}
	}

	if filepath.IsAbs(raw) && fileExists(raw) {
		return Source{URL: fileScheme + raw, Path: raw, Filename: filepath.Base(raw)}
	}

	if r.opts.Storage != nil {
		resolved, err := r.opts.Storage.ResolveURI(ctx, raw)
		if err != nil {
			r.logger.Debug("storage resolution failed", zap.String("reference", raw), zap.Error(err))
		} else if resolved != "" {
			return Source{URL: resolved, Filename: DisplayFilename(resolved)}
		}
	}

	if strings.HasPrefix(raw, dataScheme) {
		return Source{URL: raw, Filename: DisplayFilename("inline.png")}
	}

	if local, ok := strings.CutPrefix(raw, fileScheme); ok {
		return Source{URL: raw, Path: local, Filename: filepath.Base(local)}
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return Source{URL: raw, Filename: DisplayFilename(raw)}
	}

	if r.opts.Hostname != "" && strings.HasPrefix(raw, "/") {
		if joined, err := joinHost(r.opts.Hostname, raw); err == nil {
			return Source{URL: joined, Filename: DisplayFilename(raw)}
		}
	}

	return Source{URL: raw, Filename: DisplayFilename(raw)}
}

// DisplayFilename returns the last path segment of a reference with any query
// string removed, or "image" when that segment is empty.
func DisplayFilename(ref string) string {
	p, _, _ := strings.Cut(ref, "?")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "image"
	}
	return p
}

func joinHost(hostname, rel string) (string, error) {
	if !strings.HasSuffix(hostname, "/") {
		hostname += "/"
	}
	base, err := url.Parse(hostname)
	if err != nil {
		return "", fmt.Errorf("parse hostname: %w", err)
	}
	ref, err := url.Parse(strings.TrimLeft(rel, "/"))
	if err != nil {
		return "", fmt.Errorf("parse reference: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
