package render

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// Sitemap writes a sitemaps.org urlset listing each path resolved against baseURL.
// baseURL must be an absolute http(s) URL; a missing trailing slash is added.
func Sitemap(w io.Writer, baseURL string, paths []string) error {
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("base url must be an absolute http(s) url (got %q)", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	set := urlSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(paths))}
	for _, p := range paths {
		ref, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("parse sitemap path %q: %w", p, err)
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: base.ResolveReference(ref).String()})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sitemap: %w", err)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
