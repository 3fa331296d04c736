package workflow

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var materialNames = map[string]string{
	"plastico": "Plástico",
	"papel":    "Papel",
	"vidrio":   "Vidrio",
	"metal":    "Metal",
	"carton":   "Cartón",
	"organico": "Orgánico",
}

// foldKey lowercases s and strips combining marks so that "Cartón",
// "CARTON" and "carton" share a key.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

// MaterialName returns the display name of a material kind. Unknown kinds are
// returned unchanged.
func MaterialName(kind string) string {
	if name, ok := materialNames[foldKey(kind)]; ok {
		return name
	}
	return kind
}

// normalizeText trims s and puts it in NFC so the ledger stores one form of
// each reason.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
