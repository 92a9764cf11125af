package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentipulse/sentipulse/internal/models"
)

func canonical(ids ...string) []models.CanonicalPost {
	posts := make([]models.CanonicalPost, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, models.CanonicalPost{ID: id})
	}
	return posts
}

func idsOf(posts []models.CanonicalPost) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFilterNew(t *testing.T) {
	cases := []struct {
		name       string
		candidates []string
		known      []string
		want       []string
	}{
		{"all new", []string{"a", "b", "c"}, nil, []string{"a", "b", "c"}},
		{"all known", []string{"a", "b"}, []string{"a", "b"}, []string{}},
		{"mixed preserves order", []string{"a", "b", "c", "d"}, []string{"b", "d"}, []string{"a", "c"}},
		{"empty candidates", []string{}, []string{"a"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			known := make(map[string]struct{}, len(tc.known))
			for _, id := range tc.known {
				known[id] = struct{}{}
			}

			got := FilterNew(canonical(tc.candidates...), known)
			assert.Equal(t, tc.want, idsOf(got))
		})
	}
}
