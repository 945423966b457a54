package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/abelbrown/gazette/internal/logging"
)

// The two reference syntaxes the store understands: markdown image links as
// produced by FromHTML, and raw <img> tags that survived conversion.
var (
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	htmlImageRe     = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["'][^>]*>`)
	imgTagRe        = regexp.MustCompile(`<img[^>]*>`)
	srcAttrRe       = regexp.MustCompile(`src=["']([^"']+)["']`)
	altAttrRe       = regexp.MustCompile(`alt=["']([^"']*)["']`)
)

// ExtractImageURLs returns the deduplicated set of image source URLs found
// in text, in sorted order, scanning both reference syntaxes.
func ExtractImageURLs(text string) []string {
	seen := make(map[string]struct{})
	for _, re := range []*regexp.Regexp{markdownImageRe, htmlImageRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// RewriteImages substitutes localized references into text. Every <img> tag
// is collapsed to the markdown form, pointing at the mapped reference when
// one exists and at the original src otherwise. Remaining occurrences of
// each mapped URL are then replaced verbatim; a URL appearing as a substring
// of some longer token gets rewritten too, which is an accepted tradeoff.
func RewriteImages(text string, replacements map[string]string) string {
	updated := imgTagRe.ReplaceAllStringFunc(text, func(tag string) string {
		src := ""
		if m := srcAttrRe.FindStringSubmatch(tag); m != nil {
			src = m[1]
		}
		alt := ""
		if m := altAttrRe.FindStringSubmatch(tag); m != nil {
			alt = m[1]
		}
		target := src
		if local, ok := replacements[src]; ok {
			target = local
		}
		return fmt.Sprintf("![%s](%s)", alt, target)
	})

	for remote, local := range replacements {
		updated = strings.ReplaceAll(updated, remote, local)
	}
	return updated
}

// localizeImages mirrors every image referenced by the markdown into the
// store's image directory and rewrites the references to point at the local
// copies. Per-image failures leave that reference untouched; they never fail
// the article.
func (s *Store) localizeImages(ctx context.Context, markdown string) string {
	urls := ExtractImageURLs(markdown)
	if len(urls) == 0 {
		return markdown
	}

	replacements := make(map[string]string)
	for _, u := range urls {
		if _, ok := replacements[u]; ok {
			continue
		}
		if local, ok := s.localizeImage(ctx, u); ok {
			replacements[u] = local
		}
	}

	return RewriteImages(markdown, replacements)
}

// localizeImage fetches one remote image into the cache and returns its
// store-relative reference. The second return is false when the URL is not
// localizable (bad URL, wrong scheme, fetch failure); that is a normal
// outcome, not an error.
func (s *Store) localizeImage(ctx context.Context, rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}

	// Fast path: if a previous run already resolved this URL to a file, reuse
	// it without touching the network. The provisional name uses the URL's
	// own suffix hint so it matches the post-fetch name for suffixed URLs.
	filename := AssetFilename(rawURL, extensionForURL(parsed, ""))
	target := filepath.Join(s.imageDir, filename)
	if _, err := os.Stat(target); err == nil {
		return imageRef(filename), true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		logging.Debug("image fetch failed", "url", rawURL, "err", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Debug("image fetch non-success", "url", rawURL, "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}

	filename = AssetFilename(rawURL, extensionForURL(parsed, resp.Header.Get("Content-Type")))
	target = filepath.Join(s.imageDir, filename)

	// A concurrent fetcher may have won the race; the existing file is the
	// same bytes under the same name, so keep it and drop ours.
	if _, err := os.Stat(target); err != nil {
		if err := os.WriteFile(target, body, 0644); err != nil {
			logging.Warn("image write failed", "url", rawURL, "err", err)
			return "", false
		}
	}

	return imageRef(filename), true
}

// imageRef is the store-relative reference written into artifacts. The
// presentation layer serves the image directory under the same prefix.
func imageRef(filename string) string {
	return "/images/" + filename
}

// extensionForURL resolves an asset extension from the URL's path suffix,
// falling back to the response content type, falling back to a generic
// marker. Suffix comes first so the pre-fetch provisional name and the
// post-fetch name agree whenever the URL names its own format.
func extensionForURL(u *url.URL, contentType string) string {
	if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
		if known := normalizeExtension(ext); known != "" {
			return known
		}
	}
	if ext := extensionForContentType(contentType); ext != "" {
		return ext
	}
	return "img"
}

func normalizeExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "png":
		return "png"
	case "jpg", "jpeg":
		return "jpg"
	case "webp":
		return "webp"
	case "gif":
		return "gif"
	case "svg", "svgz":
		return "svg"
	}
	return ""
}

func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "image/png"):
		return "png"
	case strings.Contains(contentType, "image/jpeg"), strings.Contains(contentType, "image/jpg"):
		return "jpg"
	case strings.Contains(contentType, "image/webp"):
		return "webp"
	case strings.Contains(contentType, "image/gif"):
		return "gif"
	case strings.Contains(contentType, "image/svg+xml"):
		return "svg"
	}
	return ""
}
