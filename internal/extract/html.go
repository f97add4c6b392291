package extract

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Page is the text content extracted from one HTML document.
type Page struct {
	Title     string `json:"title"`
	BodyText  string `json:"body_text"`
	WordCount int    `json:"word_count"`

	Excerpt  string `json:"excerpt,omitempty"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty"`
}

var strictPolicy = bluemonday.StrictPolicy()

// ParseHTML extracts the title, main body text and word count from raw HTML.
// The body comes from the first <main>, else the first <article>, else <body>, with
// <script> and <style> removed and text nodes joined by single spaces.
// Input that cannot be parsed yields an empty Page.
func ParseHTML(raw string) Page {
	root, err := html.ParseWithOptions(strings.NewReader(raw), html.ParseOptionEnableScripting(false))
	if err != nil {
		return Page{}
	}
	doc := goquery.NewDocumentFromNode(root)

	title := strings.TrimSpace(doc.Find("title").First().Text())

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	if content.Length() == 0 {
		return Page{Title: title}
	}
	content.Find("script, style").Remove()

	body := selectionText(content)
	return Page{
		Title:     title,
		BodyText:  body,
		WordCount: CountWords(body),
	}
}

// ParseHTMLBytes decodes b to UTF-8 using the declared or sniffed charset, then parses it.
// contentType may be empty.
func ParseHTMLBytes(b []byte, contentType string) Page {
	return ParseHTML(DecodeHTML(b, contentType))
}

// DecodeHTML converts b to a UTF-8 string using the Content-Type header or <meta> charset.
func DecodeHTML(b []byte, contentType string) string {
	if contentType == "" {
		contentType = "text/html"
	}
	r, err := charset.NewReader(bytes.NewReader(b), contentType)
	if err != nil {
		return utils.ToValidUTF8(string(b))
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return utils.ToValidUTF8(string(b))
	}
	return utils.ToValidUTF8(string(decoded))
}

// Enrich fills the readability metadata (excerpt, byline, site name) of p.
// Readability failures leave p unchanged. A missing <title> is replaced by the readability title.
func Enrich(p *Page, raw string, pageURL string) {
	u, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		u = &url.URL{}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(raw), u)
	if err != nil {
		return
	}
	p.Excerpt = plainText(article.Excerpt)
	p.Byline = plainText(article.Byline)
	p.SiteName = plainText(article.SiteName)
	if p.Title == "" {
		p.Title = plainText(article.Title)
	}
}

// CountWords returns the number of whitespace-separated tokens in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// plainText strips any markup from s and collapses whitespace.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return utils.CollapseWhitespace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func selectionText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return utils.CollapseWhitespace(strings.Join(parts, " "))
}
