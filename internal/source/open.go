package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Open decodes the image behind a resolved source.
//
// Sources are tried in order: an existing local path, an inline data URI, a
// file:// URI, and finally a remote download. Remote downloads happen only when
// allowRemote is true and are bound by the configured fetch timeout.
//
// Every failure is returned wrapped in ErrUnavailable so callers can treat the
// image as missing without inspecting the cause.
func (r *Resolver) Open(ctx context.Context, src Source, allowRemote bool) (image.Image, error) {
	img, err := r.open(ctx, src, allowRemote)
	if err != nil {
		r.logger.Debug("image unavailable", zap.String("url", src.URL), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return img, nil
}

func (r *Resolver) open(ctx context.Context, src Source, allowRemote bool) (image.Image, error) {
	if src.Path != "" && fileExists(src.Path) {
		return decodeFile(src.Path)
	}

	if strings.HasPrefix(src.URL, dataScheme) {
		data, err := decodeDataURI(src.URL)
		if err != nil {
			return nil, err
		}
		return decode(bytes.NewReader(data))
	}

	if local, ok := strings.CutPrefix(src.URL, fileScheme); ok {
		return decodeFile(local)
	}

	if !allowRemote {
		return nil, fmt.Errorf("remote fetch disabled for %s", src.URL)
	}
	if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
		return nil, fmt.Errorf("unsupported reference %q", src.URL)
	}
	return r.fetch(ctx, src.URL)
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Token "+r.opts.AuthToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download: HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decode(bytes.NewReader(data))
}

// decodeDataURI extracts the payload of a data: URI. Base64 payloads are
// decoded; anything else is taken verbatim.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if strings.Contains(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return data, nil
	}
	return []byte(payload), nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
