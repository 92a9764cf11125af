package transform

import "github.com/sentipulse/sentipulse/internal/models"

// FilterNew returns the candidates whose id is not in alreadyKnown, in their
// original relative order. Pure function, no I/O.
func FilterNew(candidates []models.CanonicalPost, alreadyKnown map[string]struct{}) []models.CanonicalPost {
	fresh := make([]models.CanonicalPost, 0, len(candidates))

	for _, candidate := range candidates {
		if _, known := alreadyKnown[candidate.ID]; known {
			continue
		}
		fresh = append(fresh, candidate)
	}

	return fresh
}
