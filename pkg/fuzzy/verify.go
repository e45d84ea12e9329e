package fuzzy

// DefaultThreshold only rejects candidates whose artist shares nothing with the
// requested one. It filters total mismatches; close-but-wrong artists still pass.
// Raise it (e.g. to 0.85) for a stricter Jaro-Winkler policy.
const DefaultThreshold = 0.0

// Verdict is the outcome of verifying a search candidate.
type Verdict int

const (
	// Rejected means the candidate is not the requested track.
	Rejected Verdict = iota
	// Accepted means the candidate artist is similar enough to the requested one.
	Accepted
	// Swapped means the upstream transposed artist and title.
	Swapped
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Swapped:
		return "swapped"
	default:
		return "rejected"
	}
}

// Matched reports whether the candidate may be returned to the caller.
func (v Verdict) Matched() bool {
	return v == Accepted || v == Swapped
}

// Verifier decides whether a provider's top search hit is the requested track.
type Verifier struct {
	// Threshold is the artist similarity a candidate must exceed to be accepted.
	Threshold  float64
	normalizer *Normalizer
}

// NewVerifier creates a verifier with the given artist similarity threshold.
func NewVerifier(threshold float64) *Verifier {
	return &Verifier{
		Threshold:  threshold,
		normalizer: NewNormalizer(),
	}
}

// Verify compares a candidate (artist, title) pair against the requested pair.
// Artists sharing no character bigram are rejected whatever the threshold;
// the rest are accepted when their Jaro-Winkler score exceeds it.
func (v *Verifier) Verify(candidateArtist, candidateTitle, requestedArtist, requestedTitle string) Verdict {
	if v.swapped(candidateArtist, candidateTitle, requestedArtist, requestedTitle) {
		return Swapped
	}

	if v.Score(candidateArtist, requestedArtist) > v.Threshold {
		return Accepted
	}
	return Rejected
}

// swapped reports whether the upstream put the title in the artist field and
// vice versa. Titles are compared without feat. and version decorations.
func (v *Verifier) swapped(candidateArtist, candidateTitle, requestedArtist, requestedTitle string) bool {
	cArtistAsTitle := v.normalizer.NormalizeTitle(candidateArtist)
	cTitleAsArtist := v.normalizer.NormalizeArtist(candidateTitle)

	return cArtistAsTitle != "" &&
		cArtistAsTitle == v.normalizer.NormalizeTitle(requestedTitle) &&
		cTitleAsArtist == v.normalizer.NormalizeArtist(requestedArtist) &&
		cArtistAsTitle != cTitleAsArtist
}

// Score returns the artist similarity used by Verify: zero for artists with no
// bigram in common, their Jaro-Winkler similarity otherwise.
func (v *Verifier) Score(candidateArtist, requestedArtist string) float64 {
	cArtist := v.normalizer.NormalizeArtist(candidateArtist)
	rArtist := v.normalizer.NormalizeArtist(requestedArtist)
	if v.normalizer.ArtistOverlap(cArtist, rArtist) == 0 {
		return 0
	}
	return v.normalizer.CalculateSimilarity(cArtist, rArtist)
}
