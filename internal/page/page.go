// Package page implements route.PageView over parsed HTML using goquery.
package page

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

// Document is a parsed page snapshot.
type Document struct {
	url string
	doc *goquery.Document
}

// Parse builds a Document from an HTML snapshot fetched from rawURL.
func Parse(rawURL string, body []byte) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("parse %s: %w", rawURL, route.ErrEmptyPage)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return &Document{url: rawURL, doc: doc}, nil
}

// URL returns the address the snapshot was taken from.
func (d *Document) URL() string {
	return d.url
}

// Title returns the document title.
func (d *Document) Title() string {
	return normalizeSpace(d.doc.Find("title").First().Text())
}

// Find returns all elements matching selector.
func (d *Document) Find(selector string) []route.Node {
	return wrap(d.doc.Find(selector))
}

// FindByMarker returns the first element matching selector whose text
// contains marker.
func (d *Document) FindByMarker(selector, marker string) (route.Node, bool) {
	var found *goquery.Selection
	d.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(normalizeSpace(s.Text()), marker) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return node{sel: found}, true
}

type node struct {
	sel *goquery.Selection
}

func (n node) Text() string {
	return normalizeSpace(n.sel.Text())
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Find(selector string) []route.Node {
	return wrap(n.sel.Find(selector))
}

func (n node) NextSibling(selector string) (route.Node, bool) {
	next := n.sel.NextAllFiltered(selector).First()
	if next.Length() == 0 {
		return nil, false
	}
	return node{sel: next}, true
}

func wrap(sel *goquery.Selection) []route.Node {
	if sel.Length() == 0 {
		return nil
	}
	out := make([]route.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
