// ABOUTME: This file tests byline resolution and author key normalization
// ABOUTME: Covers explicit bylines, body extraction, and generic credit rejection
package authors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver()

	tests := map[string]struct {
		byline   string
		headline string
		text     string
		wantName string
		wantKey  string
		wantOK   bool
	}{
		"explicit byline wins": {
			byline:   "Anna Meier",
			text:     "Von Peter Muster. Der Artikel beginnt hier.",
			wantName: "Anna Meier",
			wantKey:  "anna meier",
			wantOK:   true,
		},
		"german body byline is extracted": {
			text:     "Von Anna Meier\n\nBern. Der Bundesrat hat am Mittwoch entschieden.",
			wantName: "Anna Meier",
			wantKey:  "anna meier",
			wantOK:   true,
		},
		"french body byline is extracted": {
			text:     "Par Jean Dupont\n\nLe Conseil fédéral a tranché.",
			wantName: "Jean Dupont",
			wantKey:  "jean dupont",
			wantOK:   true,
		},
		"english body byline is extracted": {
			text:     "By John Smith\n\nThe federal council decided on Wednesday.",
			wantName: "John Smith",
			wantKey:  "john smith",
			wantOK:   true,
		},
		"headline analysis credit is extracted": {
			headline: "Analysis by Maria Rossi: what the vote means",
			text:     "The vote last Sunday changed little.",
			wantName: "Maria Rossi",
			wantKey:  "maria rossi",
			wantOK:   true,
		},
		"generic staff byline is rejected": {
			byline: "Redaktion",
			text:   "Der Artikel hat keinen Autor.",
			wantOK: false,
		},
		"wire service byline is rejected": {
			byline: "Keystone-SDA",
			text:   "Agenturmeldung ohne Autor.",
			wantOK: false,
		},
		"single word byline is rejected": {
			byline: "Anna",
			text:   "Kein Nachname vorhanden.",
			wantOK: false,
		},
		"all caps byline is rejected": {
			byline: "NEWS DESK",
			wantOK: false,
		},
		"no byline anywhere": {
			text:   "Ein Artikel ohne jegliche Autorenangabe im Text.",
			wantOK: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resolution, ok := resolver.Resolve(tc.byline, tc.headline, tc.text)

			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantName, resolution.DisplayName)
				assert.Equal(t, tc.wantKey, resolution.Key)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"lowercase and collapse whitespace": {
			input: "  Anna   Meier ",
			want:  "anna meier",
		},
		"initials lose their periods": {
			input: "J. Smith",
			want:  "j smith",
		},
		"middle initial": {
			input: "Anna B. Meier",
			want:  "anna b meier",
		},
		"variant spellings collapse to one key": {
			input: "ANNA MEIER",
			want:  "anna meier",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeKey(tc.input))
		})
	}
}

func TestNormalizeKey_Stability(t *testing.T) {
	t.Run("equivalent spellings share a key", func(t *testing.T) {
		variants := []string{"J. Smith", "J Smith", "j. smith", "  j   smith "}

		first := NormalizeKey(variants[0])
		for _, variant := range variants[1:] {
			assert.Equal(t, first, NormalizeKey(variant), "variant %q", variant)
		}
	})
}
