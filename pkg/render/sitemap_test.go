package render

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
)

func TestSitemap(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    []string
	}{
		{
			name:    "trailing slash",
			baseURL: "https://example.org/speeches/",
			want:    []string{"https://example.org/speeches/index.html", "https://example.org/speeches/page-0001.html"},
		},
		{
			name:    "no trailing slash",
			baseURL: "https://example.org/speeches",
			want:    []string{"https://example.org/speeches/index.html", "https://example.org/speeches/page-0001.html"},
		},
		{
			name:    "host only",
			baseURL: "http://example.org",
			want:    []string{"http://example.org/index.html", "http://example.org/page-0001.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Sitemap(&buf, tt.baseURL, []string{"index.html", "page-0001.html"}); err != nil {
				t.Fatalf("Sitemap() error = %v", err)
			}
			if !strings.HasPrefix(buf.String(), xml.Header) {
				t.Error("sitemap should start with the XML header")
			}

			var set urlSet
			if err := xml.Unmarshal(buf.Bytes(), &set); err != nil {
				t.Fatalf("sitemap is not valid XML: %v", err)
			}
			if len(set.URLs) != len(tt.want) {
				t.Fatalf("got %d urls, want %d", len(set.URLs), len(tt.want))
			}
			for i, u := range set.URLs {
				if u.Loc != tt.want[i] {
					t.Errorf("url[%d] = %q, want %q", i, u.Loc, tt.want[i])
				}
			}
		})
	}
}

func TestSitemap_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "example.org", "ftp://example.org/", "/relative/"} {
		var buf bytes.Buffer
		if err := Sitemap(&buf, base, []string{"index.html"}); err == nil {
			t.Errorf("Sitemap(%q) expected error", base)
		}
		if buf.Len() != 0 {
			t.Errorf("Sitemap(%q) wrote output on error", base)
		}
	}
}
