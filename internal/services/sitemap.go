package services

import (
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// BuildSitemap renders the sitemap: static pages, published articles with
// their last modification date, then the blog filtered by each category.
func BuildSitemap(baseURL string, articles []models.Article, categories []models.Category) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	set := urlSet{XMLNS: sitemapNS}

	for _, p := range []struct{ path, priority, freq string }{
		{"", "1.0", "daily"},
		{"/blog", "0.9", "daily"},
		{"/about", "0.7", "monthly"},
		{"/contact", "0.6", "monthly"},
	} {
		loc := base + p.path
		if loc == "" {
			loc = "/"
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: loc, ChangeFreq: p.freq, Priority: p.priority})
	}

	for _, a := range articles {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/blog/" + url.PathEscape(a.Slug),
			LastMod:    a.LastModified().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	for _, c := range categories {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/blog?category=" + url.QueryEscape(c.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
