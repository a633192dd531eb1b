package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeStorage map[string]string

func (f fakeStorage) ResolveURI(_ context.Context, raw string) (string, error) {
	if raw == "s3://broken/x.png" {
		return "", errors.New("no credentials")
	}
	return f[raw], nil
}

// encodePNG returns a solid-color PNG of the given size.
func encodePNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// writePNG writes a PNG into dir and returns its path.
func writePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, encodePNG(t, width, height, color.RGBA{255, 0, 0, 255}), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	existing := writePNG(t, dir, "exists.png", 2, 2)

	r := NewResolver(Options{
		MediaRoot: "/media",
		UploadDir: "upload",
		Hostname:  "https://ls.example.com",
		Storage: fakeStorage{
			"s3://bucket/photo.jpg": "https://bucket.s3.amazonaws.com/photo.jpg?X-Amz-Signature=abc",
		},
	}, zaptest.NewLogger(t))

	tests := []struct {
		name string
		raw  string
		want Source
	}{
		{
			"upload marker",
			"upload://1/abc-cat.png",
			Source{URL: "upload://1/abc-cat.png", Path: "/media/upload/1/abc-cat.png", Filename: "abc-cat.png"},
		},
		{
			"absolute existing path",
			existing,
			Source{URL: "file://" + existing, Path: existing, Filename: "exists.png"},
		},
		{
			"presigned storage",
			"s3://bucket/photo.jpg",
			Source{URL: "https://bucket.s3.amazonaws.com/photo.jpg?X-Amz-Signature=abc", Filename: "photo.jpg"},
		},
		{
			"storage error falls through",
			"s3://broken/x.png",
			Source{URL: "s3://broken/x.png", Filename: "x.png"},
		},
		{
			"data uri",
			"data:image/png;base64,AAAA",
			Source{URL: "data:image/png;base64,AAAA", Filename: "inline.png"},
		},
		{
			"file uri",
			"file:///srv/images/dog.jpg",
			Source{URL: "file:///srv/images/dog.jpg", Path: "/srv/images/dog.jpg", Filename: "dog.jpg"},
		},
		{
			"https url with query",
			"https://cdn.example.com/a/b/c.png?size=large",
			Source{URL: "https://cdn.example.com/a/b/c.png?size=large", Filename: "c.png"},
		},
		{
			"host-relative path",
			"/data/upload/3/img.png",
			Source{URL: "https://ls.example.com/data/upload/3/img.png", Filename: "img.png"},
		},
		{
			"opaque fallback",
			"gs-bucket-object",
			Source{URL: "gs-bucket-object", Filename: "gs-bucket-object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(context.Background(), tt.raw)
			if got != tt.want {
				t.Errorf("Resolve(%q):\n got %+v\nwant %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolve_HostRelativeWithoutHostname(t *testing.T) {
	r := NewResolver(Options{}, nil)
	got := r.Resolve(context.Background(), "/data/upload/3/img.png")
	want := Source{URL: "/data/upload/3/img.png", Filename: "img.png"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDisplayFilename(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://x.com/a/b.png", "b.png"},
		{"https://x.com/a/b.png?sig=1/2", "b.png"},
		{"https://x.com/dir/", "image"},
		{"", "image"},
		{"plain.jpg", "plain.jpg"},
	}
	for _, tt := range tests {
		if got := DisplayFilename(tt.ref); got != tt.want {
			t.Errorf("DisplayFilename(%q): got %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestOpen_LocalSources(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "upload/7/local.png", 5, 3)
	r := NewResolver(Options{MediaRoot: dir, UploadDir: "upload"}, zaptest.NewLogger(t))
	ctx := context.Background()

	encoded := base64.StdEncoding.EncodeToString(encodePNG(t, 4, 6, color.White))

	tests := []struct {
		name          string
		raw           string
		width, height int
	}{
		{"upload", "upload://7/local.png", 5, 3},
		{"absolute path", path, 5, 3},
		{"file uri", "file://" + path, 5, 3},
		{"data uri", "data:image/png;base64," + encoded, 4, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := r.Open(ctx, r.Resolve(ctx, tt.raw), false)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.width, tt.height)
			}
		})
	}
}

func TestOpen_Unavailable(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewResolver(Options{MediaRoot: dir}, zaptest.NewLogger(t))
	ctx := context.Background()

	tests := []struct {
		name        string
		raw         string
		allowRemote bool
	}{
		{"missing upload", "upload://nope.png", false},
		{"missing upload with remote allowed", "upload://nope.png", true},
		{"undecodable file", garbage, false},
		{"bad base64", "data:image/png;base64,@@@", false},
		{"data uri without comma", "data:image/png;base64", false},
		{"remote disabled", "https://example.com/a.png", false},
		{"opaque reference", "something-else", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Open(ctx, r.Resolve(ctx, tt.raw), tt.allowRemote)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestOpen_Remote(t *testing.T) {
	body := encodePNG(t, 3, 2, color.Black)
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		switch req.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(body)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r := NewResolver(Options{AuthToken: "secret"}, zaptest.NewLogger(t))
	ctx := context.Background()

	img, err := r.Open(ctx, r.Resolve(ctx, srv.URL+"/ok.png"), true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("size: got %dx%d, want 3x2", b.Dx(), b.Dy())
	}
	if gotAuth != "Token secret" {
		t.Errorf("Authorization header: got %q, want %q", gotAuth, "Token secret")
	}

	if _, err := r.Open(ctx, r.Resolve(ctx, srv.URL+"/missing.png"), true); !errors.Is(err, ErrUnavailable) {
		t.Errorf("404: expected ErrUnavailable, got %v", err)
	}
}

func TestOpen_RemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewResolver(Options{FetchTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	ctx := context.Background()

	start := time.Now()
	_, err := r.Open(ctx, r.Resolve(ctx, srv.URL+"/slow.png"), true)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline to be the cause, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("fetch took %v, expected it to stop near the timeout", elapsed)
	}
}
