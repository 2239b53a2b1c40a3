package contest

import (
	"context"
	"log/slog"

	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/metrics"
)

// Eligibility responde se um nome já votou ou enviou faixa na semana.
// Falhas de leitura viram false: a checagem é consultiva e não bloqueia o usuário.
type Eligibility struct {
	tracks domain.TrackRepository
	votes  domain.VoteRepository
	log    *slog.Logger
}

func NewEligibility(tracks domain.TrackRepository, votes domain.VoteRepository, log *slog.Logger) *Eligibility {
	if log == nil {
		log = slog.Default()
	}
	return &Eligibility{tracks: tracks, votes: votes, log: log}
}

func (e *Eligibility) HasVoted(ctx context.Context, userName string, week domain.WeekKey) bool {
	ok, err := e.votes.ExistsForUser(ctx, userName, week)
	if err != nil {
		e.log.Warn("falha ao consultar voto da semana", "user", userName, "week", week, "err", err)
		metrics.IncEligibilityError("voted")
		return false
	}
	return ok
}

func (e *Eligibility) HasSubmitted(ctx context.Context, userName string, week domain.WeekKey) bool {
	ok, err := e.tracks.ExistsForUser(ctx, userName, week)
	if err != nil {
		e.log.Warn("falha ao consultar envio da semana", "user", userName, "week", week, "err", err)
		metrics.IncEligibilityError("submitted")
		return false
	}
	return ok
}
