package contest

import (
	"cmp"
	"slices"

	"github.com/marcelojr/track-battle/internal/domain"
)

// Rank ordena por votos (desc); empates caem para a data de criação e depois para o ID,
// então a mesma entrada sempre produz a mesma ordem. Só a posição 0 é marcada como líder.
func Rank(tracks []domain.Track) []domain.Standing {
	ordered := slices.Clone(tracks)
	slices.SortStableFunc(ordered, func(a, b domain.Track) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	standings := make([]domain.Standing, len(ordered))
	for i, t := range ordered {
		standings[i] = domain.Standing{Track: t, Rank: i, Leading: i == 0}
	}
	return standings
}

// Winner devolve a faixa líder, ou nil para uma lista vazia.
func Winner(standings []domain.Standing) *domain.Track {
	if len(standings) == 0 {
		return nil
	}
	winner := standings[0].Track
	return &winner
}
