// Package media resolves and filters image and video URLs found in content nodes.
package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/use-agent/threadscope/dom"
)

// Policy decides which resolved URLs are kept.
type Policy struct {
	// AllowedExtensions are path suffixes without the dot, e.g. "jpg".
	// Empty accepts any extension.
	AllowedExtensions []string `yaml:"allowedExtensions" json:"allowedExtensions"`

	// AllowedHosts are suffix-matched against the URL host. Empty accepts any host.
	AllowedHosts []string `yaml:"allowedHosts" json:"allowedHosts"`

	// RejectDataURLs drops data: URIs.
	RejectDataURLs bool `yaml:"rejectDataUrls" json:"rejectDataUrls"`

	// RejectSubstrings drops any URL containing one of these (placeholders, emoji sprites).
	RejectSubstrings []string `yaml:"rejectSubstrings" json:"rejectSubstrings"`
}

// DefaultPolicy accepts any http(s) URL that is not a data URI.
func DefaultPolicy() Policy {
	return Policy{RejectDataURLs: true}
}

// Normalize resolves raw against base, filters the results through p and
// removes duplicates, keeping first-occurrence order.
//
// Filters run in order: data URI, scheme, extension, host, substring. A raw
// value that cannot be resolved is passed through as-is and then filtered.
func Normalize(raw []string, base string, p Policy) []string {
	baseURL, _ := url.Parse(base)

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		abs := resolve(r, baseURL)
		if !p.accept(abs) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func resolve(raw string, base *url.URL) string {
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if strings.HasPrefix(raw, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		ref.Scheme = scheme
		return ref.String()
	}
	if base == nil || !base.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func (p Policy) accept(u string) bool {
	lower := strings.ToLower(u)
	if p.RejectDataURLs && strings.HasPrefix(lower, "data:") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}
	if len(p.AllowedExtensions) > 0 && !hasExtension(parsed.Path, p.AllowedExtensions) {
		return false
	}
	if len(p.AllowedHosts) > 0 && !hostAllowed(parsed.Hostname(), p.AllowedHosts) {
		return false
	}
	for _, s := range p.RejectSubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return false
		}
	}
	return true
}

func hasExtension(p string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimPrefix(a, "."))
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// imageAttrs are read in priority order; the first non-empty one per image wins.
var imageAttrs = []string{"src", "data-src", "data-original", "data-lazy-src"}

// Collect gathers raw image and video URLs under the first node matching one
// of scope (or n itself when scope is empty).
func Collect(n dom.Node, scope ...string) (images, videos []string) {
	root := n
	if len(scope) > 0 {
		if s := dom.First(n, scope...); s != nil {
			root = s
		} else {
			return nil, nil
		}
	}
	for _, img := range root.Find("img") {
		for _, attr := range imageAttrs {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				images = append(images, v)
				break
			}
		}
	}
	for _, v := range root.Find("video[src], video source[src]") {
		if src, ok := v.Attr("src"); ok {
			videos = append(videos, src)
		}
	}
	return images, videos
}
