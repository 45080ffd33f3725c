// Package fieldmap turns scraped site fields into normalized catalog fields.
// Unlike scoring, a field that fails to parse is left empty here rather than
// defaulted.
package fieldmap

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	knownTLD   = regexp.MustCompile(`(?i)\.(com|net|org|io|co|uk|de|fr|es|it|nl|jp|cn|in|au|ca)$`)
	separators = regexp.MustCompile(`[-_]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugStrip  = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes = regexp.MustCompile(`-{2,}`)
)

// Slug derives the URL-safe catalog key for a domain: diacritics folded,
// lowercased, whitespace turned into dashes and every other character outside
// [a-z0-9-] dropped. "Example.com" becomes "examplecom".
func Slug(domain string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.TrimSpace(domain),
	)
	if err != nil {
		folded = domain
	}
	s := strings.ToLower(folded)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugStrip.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DisplayName builds a human name from a domain by dropping one known TLD
// suffix, turning dashes and underscores into spaces and capitalizing each
// word: "tech-daily.com" becomes "Tech Daily".
func DisplayName(domain string) string {
	name := knownTLD.ReplaceAllString(domain, "")
	name = separators.ReplaceAllString(name, " ")
	words := strings.Split(name, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SiteURL is the public URL stored for a domain.
func SiteURL(domain string) string {
	return "https://" + domain
}

// FaviconURL points at a 128px favicon for the domain.
func FaviconURL(domain string) string {
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=128", url.QueryEscape(domain))
}

// LinkType normalizes the link attribution text to "dofollow" or "nofollow".
func LinkType(attribution string) string {
	if strings.Contains(strings.ToLower(attribution), "dofollow") {
		return "dofollow"
	}
	return "nofollow"
}
