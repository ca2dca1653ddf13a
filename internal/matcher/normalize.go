package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketRe   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featRe      = regexp.MustCompile(`(?i)\s(?:feat\.?|ft\.?|featuring)(?:\s|$).*`)
	featWordRe  = regexp.MustCompile(`(?i)^\s*(?:feat\.?|ft\.?|featuring)(?:\s|$)`)
	dashRe      = regexp.MustCompile(`^(.*\S)\s+[-–—]\s+(.+)$`)
	qualifierRe = regexp.MustCompile(`(?i)\b(?:remaster|live\b|version|remix|mix\b|edit\b|mono\b|stereo|acoustic|demo\b|bonus|radio)`)
	nonAlnumRe  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	artistSepRe = regexp.MustCompile(`(?i)\s*,\s*|\s+&\s+|\s+and\s+|\s+x\s+`)
)

// Normalize reduces a title or artist to the form used for comparison:
// folded diacritics, lowercase, qualifiers removed, punctuation collapsed.
//
// A title made only of qualifiers keeps its words instead of normalizing to "".
func Normalize(s string) string {
	s = strings.ToLower(foldDiacritics(strings.TrimSpace(s)))
	if stripped := collapse(stripQualifiers(s)); stripped != "" {
		return stripped
	}
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(nonAlnumRe.ReplaceAllString(s, " ")), " ")
}

// StripQualifiers removes edition notes such as "(Live)" or "- Remastered 2011"
// and trailing featuring clauses while keeping the original case. Brackets that
// belong to the title itself, as in "(Don't Fear) The Reaper", are kept.
func StripQualifiers(s string) string {
	return strings.Join(strings.Fields(stripQualifiers(s)), " ")
}

func stripQualifiers(s string) string {
	s = bracketRe.ReplaceAllStringFunc(s, func(group string) string {
		inner := group[1 : len(group)-1]
		if qualifierRe.MatchString(inner) || featWordRe.MatchString(inner) {
			return " "
		}
		return group
	})
	s = featRe.ReplaceAllString(strings.TrimSpace(s), "")
	if m := dashRe.FindStringSubmatch(s); m != nil && qualifierRe.MatchString(m[2]) {
		s = m[1]
	}
	return s
}

func foldDiacritics(s string) string {
	decomposed := norm.NFD.String(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// artistForms returns the normalized full credit followed by each
// individually credited name.
func artistForms(credit string) []string {
	full := Normalize(credit)
	if full == "" {
		return nil
	}

	forms := []string{full}
	for _, part := range artistSepRe.Split(credit, -1) {
		if n := Normalize(part); n != "" && n != full {
			forms = append(forms, n)
		}
	}
	return forms
}
