package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	tests := map[string]struct {
		a         string
		b         string
		wantEqual bool
	}{
		"identical text hashes identically": {
			a:         "Der Bundesrat hat entschieden.",
			b:         "Der Bundesrat hat entschieden.",
			wantEqual: true,
		},
		"whitespace variants collapse to the same hash": {
			a:         "Der Bundesrat  hat\nentschieden.",
			b:         " Der Bundesrat hat entschieden. ",
			wantEqual: true,
		},
		"different text hashes differently": {
			a:         "Der Bundesrat hat entschieden.",
			b:         "Le Conseil fédéral a décidé.",
			wantEqual: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			hashA := ContentHash(tc.a)
			hashB := ContentHash(tc.b)

			assert.Len(t, hashA, 64)
			if tc.wantEqual {
				assert.Equal(t, hashA, hashB)
			} else {
				assert.NotEqual(t, hashA, hashB)
			}
		})
	}
}

func TestNewArticle(t *testing.T) {
	t.Run("should use classifier language over declared language", func(t *testing.T) {
		fetched := FetchedArticle{
			SourceID:         "nzz",
			Region:           "zurich",
			DeclaredLanguage: "en",
			Text:             "Asylpolitik im Nationalrat",
		}

		article := NewArticle(fetched, "de")

		assert.Equal(t, "de", article.Language)
		assert.Equal(t, ContentHash(fetched.Text), article.ID)
		assert.Equal(t, "nzz", article.SourceID)
	})
}
