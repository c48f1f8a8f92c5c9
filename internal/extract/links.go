package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

// DetailLink finds the route page linked from an entity page: the heading
// containing Layout.DetailHeading, then the first link in the paragraph after it.
func DetailLink(page route.PageView, l Layout) (string, error) {
	heading, ok := page.FindByMarker(l.HeadingSelector, l.DetailHeading)
	if !ok {
		return "", route.ErrNoDetailLink
	}
	p, ok := heading.NextSibling("p")
	if !ok {
		return "", fmt.Errorf("no paragraph after detail heading: %w", route.ErrNoDetailLink)
	}
	for _, a := range p.Find("a") {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return Resolve(page.URL(), href), nil
		}
	}
	return "", fmt.Errorf("no link after detail heading: %w", route.ErrNoDetailLink)
}

// AttachmentLink returns the absolute URL of the attachment action link.
func AttachmentLink(page route.PageView, l Layout) (string, bool) {
	for _, a := range page.Find(l.AttachmentSelector) {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return Resolve(page.URL(), href), true
		}
	}
	return "", false
}

// ConfirmationLink returns the direct download link on an interstitial page:
// the link whose text carries Layout.ConfirmText and whose target ends in
// Layout.AttachmentExt.
func ConfirmationLink(page route.PageView, l Layout) (string, bool) {
	for _, a := range page.Find(l.ConfirmSelector()) {
		if !strings.Contains(a.Text(), l.ConfirmText) {
			continue
		}
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		abs := Resolve(page.URL(), href)
		if strings.HasSuffix(urlPath(abs), l.AttachmentExt) {
			return abs, true
		}
	}
	return "", false
}

// Resolve makes href absolute against base. Unparseable input is returned as is.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
