package util

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxStemLength = 75

var (
	unsafeChars = regexp.MustCompile(`[^\w. _-]`)
	repeatDots  = regexp.MustCompile(`\.{2,}`)
	digitRuns   = regexp.MustCompile(`\d+`)
)

// SafeFilename folds name to ASCII and replaces anything outside word
// characters, dot, space, underscore and dash with "---". The stem is capped
// at 75 characters before prefix and suffix are attached with underscores.
// Empty prefix or suffix are skipped.
func SafeFilename(name, prefix, suffix string) string {
	name = foldASCII(name)
	name = unsafeChars.ReplaceAllString(name, "---")

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	if prefix != "" {
		stem = prefix + "_" + stem
	}
	if suffix != "" {
		stem = stem + "_" + suffix
	}

	return repeatDots.ReplaceAllString(stem+ext, ".")
}

func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NaturalLess orders strings so that embedded numbers compare by value:
// "clip2" sorts before "clip10".
func NaturalLess(a, b string) bool {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		x, y := ka[i], kb[i]
		if x.isNum && y.isNum {
			if x.num != y.num {
				return x.num < y.num
			}
			continue
		}
		if x.text != y.text {
			return x.text < y.text
		}
	}
	return len(ka) < len(kb)
}

// SortNatural sorts names in place using NaturalLess.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return NaturalLess(names[i], names[j])
	})
}

type keyPart struct {
	text  string
	num   uint64
	isNum bool
}

func naturalKey(s string) []keyPart {
	var parts []keyPart
	last := 0
	for _, loc := range digitRuns.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parts = append(parts, keyPart{text: s[last:loc[0]]})
		}
		digits := s[loc[0]:loc[1]]
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			parts = append(parts, keyPart{text: digits})
		} else {
			parts = append(parts, keyPart{text: digits, num: n, isNum: true})
		}
		last = loc[1]
	}
	if last < len(s) {
		parts = append(parts, keyPart{text: s[last:]})
	}
	return parts
}
