package catalog

import (
	"net/url"
	"strings"
	"unicode"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// DefaultItemPageTemplate is the canonical detail-page URL layout.
const DefaultItemPageTemplate = "{base}/catalog/{id}/{slug}"

const defaultSlug = "item"

// ItemPageURL expands tmpl for one item. Placeholders are {base}, {id} and
// {slug}; the slug is derived from name.
func ItemPageURL(tmpl, base string, id domain.ItemID, name string) string {
	if tmpl == "" {
		tmpl = DefaultItemPageTemplate
	}
	r := strings.NewReplacer(
		"{base}", strings.TrimRight(base, "/"),
		"{id}", url.PathEscape(id.String()),
		"{slug}", Slugify(name),
	)
	return r.Replace(tmpl)
}

// Slugify reduces name to a URL path segment of ASCII letters and digits
// joined by hyphens. An empty result becomes "item".
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	if b.Len() == 0 {
		return defaultSlug
	}
	return b.String()
}

// expandID substitutes the {id} placeholder of an endpoint template.
func expandID(tmpl string, id domain.ItemID) string {
	return strings.ReplaceAll(tmpl, "{id}", url.PathEscape(id.String()))
}
