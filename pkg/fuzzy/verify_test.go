package fuzzy

import "testing"

func TestVerifier_Verify(t *testing.T) {
	verifier := NewVerifier(DefaultThreshold)

	tests := []struct {
		name            string
		candidateArtist string
		candidateTitle  string
		requestedArtist string
		requestedTitle  string
		expected        Verdict
	}{
		{"Exact match", "Artist", "Song", "Artist", "Song", Accepted},
		{"Swapped fields", "Song", "Artist", "Artist", "Song", Swapped},
		{"Swapped fields with different case", "one more time", "DAFT PUNK", "Daft Punk", "One More Time", Swapped},
		{"Swapped fields with featured guest", "Song", "Artist", "Artist", "Song (feat. Guest)", Swapped},
		{"Zero similarity", "TotallyUnrelated", "X", "Artist", "Song", Rejected},
		{"No shared characters", "Qqq", "X", "Artist", "Song", Rejected},
		{"Empty candidate artist", "", "Song", "Artist", "Song", Rejected},
		{"Loose default accepts partial overlap", "Artista", "Other Song", "Artist", "Song", Accepted},
		{"Transliterated artist", "Кино", "Группа крови", "Kino", "Gruppa krovi", Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verifier.Verify(tt.candidateArtist, tt.candidateTitle, tt.requestedArtist, tt.requestedTitle)
			if got != tt.expected {
				t.Errorf("Verify() = %v, want %v", got, tt.expected)
			}
			if got.Matched() != (tt.expected != Rejected) {
				t.Errorf("Matched() = %v for verdict %v", got.Matched(), got)
			}
		})
	}
}

func TestVerifier_StricterThreshold(t *testing.T) {
	verifier := NewVerifier(0.85)

	if got := verifier.Verify("Daft Punk", "One More Time", "Daft Punk", "One More Time"); got != Accepted {
		t.Errorf("Verify() identical = %v, want accepted", got)
	}
	if got := verifier.Verify("Dua Lipa", "Song", "Daft Punk", "Song"); got != Rejected {
		t.Errorf("Verify() different artist = %v, want rejected", got)
	}
	// Swap recovery does not depend on the threshold.
	if got := verifier.Verify("Song", "Artist", "Artist", "Song"); got != Swapped {
		t.Errorf("Verify() swapped = %v, want swapped", got)
	}
}

func TestVerdict_String(t *testing.T) {
	for verdict, want := range map[Verdict]string{
		Accepted: "accepted",
		Swapped:  "swapped",
		Rejected: "rejected",
	} {
		if got := verdict.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestVerifier_Score(t *testing.T) {
	verifier := NewVerifier(DefaultThreshold)

	if got := verifier.Score("TotallyUnrelated", "Artist"); got != 0 {
		t.Errorf("Score() with no shared bigram = %f, want 0", got)
	}
	if got := verifier.Score("Daft Punk", "daft punk"); got != 1 {
		t.Errorf("Score() identical after normalization = %f, want 1", got)
	}
	if got := verifier.Score("Artista", "Artist"); got <= 0 || got >= 1 {
		t.Errorf("Score() partial overlap = %f, want in (0, 1)", got)
	}
}
