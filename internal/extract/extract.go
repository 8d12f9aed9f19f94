package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lazyAttrs is the vocabulary of lazy-load placeholder attributes collected
// from img elements, in addition to src and srcset. Extend here when a new
// placeholder convention shows up in the wild.
var lazyAttrs = []string{
	"data-src",
	"data-original",
	"data-lazy-src",
	"data-url",
	"data-lazysrc",
}

var backgroundURLPattern = regexp.MustCompile(`url\(["']?([^"')]+)`)

// Snapshot parses a rendered DOM snapshot and returns every image reference
// visible in it: img src values, all srcset candidate URLs, known lazy-load
// placeholder attributes, and url(...) tokens from inline background-image
// styles. The result is a set (each reference appears once) and the function
// has no network or timing side effects.
func Snapshot(snapshot string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	seen := make(map[string]struct{})
	var refs []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
		if srcset, ok := s.Attr("srcset"); ok {
			for _, candidate := range SrcsetURLs(srcset) {
				add(candidate)
			}
		}
		for _, attr := range lazyAttrs {
			if val, ok := s.Attr(attr); ok {
				add(val)
			}
		}
	})

	doc.Find("[style*='background-image']").Each(func(_ int, s *goquery.Selection) {
		style, ok := s.Attr("style")
		if !ok {
			return
		}
		for _, u := range BackgroundURLs(style) {
			add(u)
		}
	})

	return refs, nil
}

// SrcsetURLs splits a responsive srcset attribute into its candidate URLs,
// dropping the trailing width/density descriptors.
func SrcsetURLs(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}
	return urls
}

// BackgroundURLs extracts the url(...) tokens from a CSS declaration block,
// tolerating single quotes, double quotes, or none.
func BackgroundURLs(style string) []string {
	matches := backgroundURLPattern.FindAllStringSubmatch(style, -1)
	if len(matches) == 0 {
		return nil
	}
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if u := strings.TrimSpace(m[1]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
