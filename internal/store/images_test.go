package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestExtractImageURLs(t *testing.T) {
	text := `Intro ![one](https://x/a.png) and <img src="https://x/b.jpg" alt="b"> plus
a repeat <img src='https://x/a.png'> and ![three](https://x/c.webp).`

	got := ExtractImageURLs(text)
	want := []string{"https://x/a.png", "https://x/b.jpg", "https://x/c.webp"}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractImageURLs = %v, want %v", got, want)
	}
}

func TestExtractImageURLsNone(t *testing.T) {
	if urls := ExtractImageURLs("no images here [link](https://x/page)"); len(urls) != 0 {
		t.Errorf("expected no URLs, got %v", urls)
	}
}

func TestRewriteImagesHTMLTag(t *testing.T) {
	mapping := map[string]string{"https://x/a.png": "/images/H.png"}

	got := RewriteImages(`<img src="https://x/a.png" alt="A">`, mapping)
	if got != "![A](/images/H.png)" {
		t.Errorf("tag rewrite = %q, want %q", got, "![A](/images/H.png)")
	}
}

func TestRewriteImagesMarkdownForm(t *testing.T) {
	mapping := map[string]string{"https://x/a.png": "/images/H.png"}

	got := RewriteImages("![A](https://x/a.png)", mapping)
	if got != "![A](/images/H.png)" {
		t.Errorf("markdown rewrite = %q, want %q", got, "![A](/images/H.png)")
	}
}

func TestRewriteImagesUnmappedFallsBack(t *testing.T) {
	got := RewriteImages(`<img src="https://x/a.png" alt="A">`, nil)
	if got != "![A](https://x/a.png)" {
		t.Errorf("unmapped rewrite = %q, want original URL kept", got)
	}
}

func TestRewriteImagesNoAlt(t *testing.T) {
	mapping := map[string]string{"https://x/a.png": "/images/H.png"}
	got := RewriteImages(`<img src="https://x/a.png">`, mapping)
	if got != "![](/images/H.png)" {
		t.Errorf("rewrite without alt = %q", got)
	}
}

func TestRewriteImagesSubstringIsCoarse(t *testing.T) {
	// Documented tradeoff: a mapped URL is replaced wherever it appears,
	// even inside surrounding prose.
	mapping := map[string]string{"https://x/a.png": "/images/H.png"}
	got := RewriteImages("see https://x/a.png for details", mapping)
	if got != "see /images/H.png for details" {
		t.Errorf("substring substitution = %q", got)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestLocalizeImageRejectsBadURLs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"ftp://x/a.png", "not a url at all\x00", "file:///etc/passwd"} {
		if ref, ok := s.localizeImage(ctx, u); ok {
			t.Errorf("localize(%q) = %q, want absent", u, ref)
		}
	}
}

func TestLocalizeImageNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := newTestStore(t)
	if ref, ok := s.localizeImage(context.Background(), srv.URL+"/gone.png"); ok {
		t.Errorf("404 localize = %q, want absent", ref)
	}
}

func TestLocalizeImageCachesAfterFirstFetch(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s := newTestStore(t)
	url := srv.URL + "/pic.png"

	ref1, ok := s.localizeImage(context.Background(), url)
	if !ok {
		t.Fatal("first localize failed")
	}
	wantRef := "/images/" + AssetFilename(url, "png")
	if ref1 != wantRef {
		t.Errorf("reference = %q, want %q", ref1, wantRef)
	}

	ref2, ok := s.localizeImage(context.Background(), url)
	if !ok || ref2 != ref1 {
		t.Errorf("second localize = (%q, %v), want cached (%q, true)", ref2, ok, ref1)
	}
	if n := atomic.LoadInt64(&fetches); n != 1 {
		t.Errorf("expected exactly one network fetch, got %d", n)
	}

	data, err := os.ReadFile(filepath.Join(s.ImageDir(), AssetFilename(url, "png")))
	if err != nil {
		t.Fatalf("asset file missing: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("asset content = %q", data)
	}
}

func TestLocalizeImageContentTypeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp-bytes"))
	}))
	defer srv.Close()

	// No suffix on the URL path, so the extension comes from the content type.
	url := srv.URL + "/picture"
	s := newTestStore(t)

	ref, ok := s.localizeImage(context.Background(), url)
	if !ok {
		t.Fatal("localize failed")
	}
	if ref != "/images/"+AssetFilename(url, "webp") {
		t.Errorf("reference = %q, want webp extension from content type", ref)
	}
}

func TestLocalizeImageGenericFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("mystery-bytes"))
	}))
	defer srv.Close()

	url := srv.URL + "/mystery"
	s := newTestStore(t)

	ref, ok := s.localizeImage(context.Background(), url)
	if !ok {
		t.Fatal("localize failed")
	}
	if ref != "/images/"+AssetFilename(url, "img") {
		t.Errorf("reference = %q, want generic img extension", ref)
	}
}

func TestLocalizeImageConcurrentConvergence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s := newTestStore(t)
	url := srv.URL + "/shared.png"

	const callers = 8
	refs := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, ok := s.localizeImage(context.Background(), url)
			if ok {
				refs[i] = ref
			}
		}(i)
	}
	wg.Wait()

	for i, ref := range refs {
		if ref != refs[0] {
			t.Errorf("caller %d got %q, caller 0 got %q", i, ref, refs[0])
		}
	}

	entries, err := os.ReadDir(s.ImageDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected exactly one asset file, got %v", names)
	}
}

func TestExtensionForURL(t *testing.T) {
	tests := []struct {
		url         string
		contentType string
		want        string
	}{
		{"https://x/a.png", "", "png"},
		{"https://x/a.jpeg", "", "jpg"},
		{"https://x/a.JPG", "", "jpg"},
		{"https://x/a.svgz", "", "svg"},
		{"https://x/a", "image/gif", "gif"},
		{"https://x/a.dat", "image/png", "png"},
		{"https://x/a", "text/html", "img"},
		{"https://x/a", "", "img"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.url, err)
		}
		if got := extensionForURL(u, tt.contentType); got != tt.want {
			t.Errorf("extensionForURL(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
		}
	}
}
