// Package normalize implements the Search-Normalisation collaborator
// (§4.15): diacritic folding and a static alias table of venue/org/team
// synonyms, used by the Match Engine's token-overlap scoring and by the
// Release Cache's search-term expansion.
package normalize

import "strings"

// aliases maps a canonical token to its known synonyms. Entries are
// hand-curated from common sports-release naming conventions — motorsport
// venues, promotion shorthand, and club nicknames — not a general
// geographic gazetteer. Lookups are case-insensitive.
var aliases = map[string][]string{
	"abu dhabi":     {"yas marina", "yasmarina"},
	"austin":        {"cota", "circuit of the americas"},
	"silverstone":   {"british gp", "great britain"},
	"spa":           {"spa francorchamps", "belgian gp"},
	"monza":         {"italian gp", "temple of speed"},
	"suzuka":        {"japanese gp"},
	"interlagos":    {"sao paulo", "brazilian gp"},
	"ufc":           {"ultimate fighting championship"},
	"pfl":           {"professional fighters league"},
	"wwe":           {"world wrestling entertainment"},
	"man utd":       {"manchester united", "man united"},
	"man city":      {"manchester city"},
	"spurs":         {"tottenham", "tottenham hotspur"},
	"wolves":        {"wolverhampton", "wolverhampton wanderers"},
}

// reverse is the synonym -> canonical index, built once at init from
// aliases so Expand is O(1) in either direction.
var reverse = func() map[string]string {
	m := make(map[string]string)
	for canonical, variants := range aliases {
		for _, v := range variants {
			m[v] = canonical
		}
	}
	return m
}()

// Expand returns the full synonym set for a token: the token itself, its
// canonical form (if it's a known variant), and every variant of that
// canonical form. Returns just {token} when nothing is known about it.
func Expand(token string) []string {
	folded := Fold(token)
	canonical := folded
	if c, ok := reverse[folded]; ok {
		canonical = c
	}

	set := map[string]bool{folded: true, canonical: true}
	for _, v := range aliases[canonical] {
		set[v] = true
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Overlaps reports whether any alias-expansion of a has a case/diacritic
// insensitive match among the expansions of b.
func Overlaps(a, b string) bool {
	expA := Expand(a)
	expB := Expand(b)
	for _, x := range expA {
		for _, y := range expB {
			if x == y {
				return true
			}
		}
	}
	return false
}

// diacriticFold is a hand-rolled ASCII fold table over the closed alias
// set above (é/è/ê->e, ñ->n, ü->u, ...). golang.org/x/text/unicode/norm
// would be the general-purpose tool for this, but nothing in the retrieved
// corpus imports it; since the only inputs this ever sees are venue/team
// names drawn from a small, known set, a literal rune table is sufficient
// and avoids adding a dependency the corpus never demonstrates.
var diacriticFold = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ñ", "n", "ç", "c",
)

// Fold lowercases a token and strips the diacritics known to diacriticFold.
func Fold(token string) string {
	return diacriticFold.Replace(strings.ToLower(strings.TrimSpace(token)))
}
