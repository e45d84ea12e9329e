// Package fuzzy provides string normalization and similarity scoring for track matching.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/gosimple/unidecode"
	"github.com/xrash/smetrics"
	"golang.org/x/text/unicode/norm"
)

const (
	// jaroWinklerBoostThreshold is the Jaro score above which the common-prefix boost applies.
	jaroWinklerBoostThreshold = 0.7
	// jaroWinklerPrefixSize is the maximum common prefix length rewarded by the boost.
	jaroWinklerPrefixSize = 4
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:remaster|remastered|deluxe|extended|radio edit|clean|explicit)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalizer folds artist and title strings into a comparable form.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " feat ", " & ")
	artist = strings.ReplaceAll(artist, " ft ", " & ")

	return artist
}

func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")

	return n.basicNormalize(title)
}

// basicNormalize strips diacritics, transliterates non-Latin scripts, removes
// punctuation and lower-cases. Cyrillic names coming from one platform thus
// compare against their Latin spelling on another.
func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = unidecode.Unidecode(result.String())

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// CalculateSimilarity returns the Jaro-Winkler similarity of two already
// normalized strings, in [0, 1].
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return smetrics.JaroWinkler(s1, s2, jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
}

// ArtistOverlap returns the Sørensen-Dice coefficient over character bigrams of
// two normalized strings, ignoring spaces. It is zero only when the strings
// share no bigram, which makes it the gate for total mismatches.
func (n *Normalizer) ArtistOverlap(s1, s2 string) float64 {
	s1 = strings.ReplaceAll(s1, " ", "")
	s2 = strings.ReplaceAll(s2, " ", "")

	if s1 == s2 {
		if s1 == "" {
			return 0.0
		}
		return 1.0
	}

	if len([]rune(s1)) < 2 || len([]rune(s2)) < 2 {
		return 0.0
	}

	return strutil.Similarity(s1, s2, metrics.NewSorensenDice())
}
