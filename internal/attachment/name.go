package attachment

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/JakeFAU/munro-enricher/internal/hash/sha256"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var hasher = sha256.New()

// FileName derives the stored name of an attachment from its download URL:
// the URL's base name with unsafe characters replaced and ext enforced. URLs
// without a usable base name fall back to a digest of the URL.
func FileName(rawURL, ext string) string {
	base := ""
	if u, err := url.Parse(rawURL); err == nil {
		base = path.Base(u.Path)
	}
	base = strings.Trim(invalidFilenameChars.ReplaceAllString(base, "_"), "._")
	if base == "" || base == "/" {
		base = hasher.HashString(rawURL, 16)
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(base), strings.ToLower(ext)) {
		base += ext
	}
	return base
}
