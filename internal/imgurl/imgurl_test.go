package imgurl

import (
	"net/url"
	"testing"

	"imgharvest/pkg/types"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse base %q: %v", raw, err)
	}
	return u
}

func TestResolveRelative(t *testing.T) {
	base := mustBase(t, "https://ex.com/articles/page")

	cases := []struct {
		ref  string
		want string
	}{
		{"/a.png", "https://ex.com/a.png"},
		{"img/b.jpg", "https://ex.com/articles/img/b.jpg"},
		{"//cdn.ex.com/c.webp", "https://cdn.ex.com/c.webp"},
		{"https://other.com/d.gif", "https://other.com/d.gif"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.ref, base)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	base := mustBase(t, "https://ex.com/")
	first, err := Resolve("/x.png?v=1", base)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Resolve("/x.png?v=1", base)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("resolution not deterministic: %q vs %q", first, second)
	}

	// Resolving an already-absolute URL is a no-op.
	abs := "https://ex.com/abs.png?q=2"
	got, err := Resolve(abs, base)
	if err != nil {
		t.Fatal(err)
	}
	if got != abs {
		t.Fatalf("absolute URL changed: %q -> %q", abs, got)
	}
}

func TestResolveErrors(t *testing.T) {
	if _, err := Resolve("  ", mustBase(t, "https://ex.com/")); err == nil {
		t.Fatal("expected error for empty reference")
	}
	if _, err := Resolve("/rel.png", nil); err == nil {
		t.Fatal("expected error for relative reference without base")
	}
}

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		url         string
		contentType string
		want        types.Classification
	}{
		// data: wins even when the payload is SVG markup.
		{"data:image/svg+xml,<svg/>", "", types.DataEmbedded},
		{"data:image/png;base64,AAAA", "", types.DataEmbedded},
		{"https://x.com/a.svg?x=1", "", types.VectorExcluded},
		{"https://x.com/assets/svg/logo.png", "", types.VectorExcluded},
		{"https://x.com/a.png", "image/svg+xml", types.VectorExcluded},
		{"https://x.com/a.png", "image/png", types.Fetchable},
		{"https://x.com/a.png?width=200", "", types.Fetchable},
	}
	for _, tc := range cases {
		if got := Classify(tc.url, tc.contentType); got != tc.want {
			t.Fatalf("Classify(%q, %q) = %v, want %v", tc.url, tc.contentType, got, tc.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify("https://x.com/a.svg", ""); got != types.VectorExcluded {
			t.Fatalf("call %d: got %v", i, got)
		}
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://ex.com/a.png", ".png"},
		{"https://ex.com/a.PNG?v=1", ".png"},
		{"https://ex.com/photo", ".jpg"},
		{"https://ex.com/a.jpeg?width=1200&fit=max", ".jpeg"},
	}
	for _, tc := range cases {
		if got := Extension(tc.url, ".jpg"); got != tc.want {
			t.Fatalf("Extension(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
