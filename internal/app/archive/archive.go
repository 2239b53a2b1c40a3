// Pacote archive expõe as semanas encerradas, somente leitura: as semanas de demonstração
// embutidas no binário mais as semanas fechadas encontradas no banco.
package archive

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/app/weekclock"
	"github.com/marcelojr/track-battle/internal/domain"
)

var ErrArchiveWeekNotFound = errors.New("semana nao encontrada no arquivo")

//go:embed seed.json
var seedJSON []byte

type Seed map[domain.WeekKey][]domain.Track

// LoadSeed decodifica as semanas de demonstração embutidas.
func LoadSeed() (Seed, error) {
	var seed Seed
	if err := json.Unmarshal(seedJSON, &seed); err != nil {
		return nil, fmt.Errorf("archive: seed invalido: %w", err)
	}
	for week, tracks := range seed {
		for i := range tracks {
			tracks[i].Week = week
		}
	}
	return seed, nil
}

type View struct {
	tracks domain.TrackRepository
	clock  domain.Clock
	seed   Seed
	log    *slog.Logger
}

// NewView monta o arquivo; tracks pode ser nil para servir só o seed.
func NewView(tracks domain.TrackRepository, clock domain.Clock, seed Seed, log *slog.Logger) *View {
	if log == nil {
		log = slog.Default()
	}
	if seed == nil {
		seed = Seed{}
	}
	return &View{tracks: tracks, clock: clock, seed: seed, log: log}
}

func (v *View) currentWeek() domain.WeekKey {
	return weekclock.CurrentWeekKey(v.clock.Agora())
}

// Weeks lista as semanas do arquivo em ordem lexical decrescente (mais recente primeiro).
// Falhas do banco reduzem a lista ao seed.
func (v *View) Weeks(ctx context.Context) []domain.WeekKey {
	weeks := make([]domain.WeekKey, 0, len(v.seed))
	for week := range v.seed {
		weeks = append(weeks, week)
	}

	if v.tracks != nil {
		live, err := v.tracks.ListWeeks(ctx, v.currentWeek())
		if err != nil {
			v.log.Warn("falha ao listar semanas encerradas", "err", err)
		}
		weeks = append(weeks, live...)
	}

	slices.SortFunc(weeks, func(a, b domain.WeekKey) int { return strings.Compare(string(b), string(a)) })
	return slices.Compact(weeks)
}

// Week devolve o vencedor e o ranking de uma semana encerrada.
func (v *View) Week(ctx context.Context, week domain.WeekKey) (domain.ArchiveWeek, error) {
	tracks := slices.Clone(v.seed[week])

	if v.tracks != nil && week < v.currentWeek() {
		live, err := v.tracks.ListForWeek(ctx, week)
		if err != nil {
			return domain.ArchiveWeek{}, fmt.Errorf("archive: listar semana %s: %w", week, err)
		}
		tracks = append(tracks, live...)
	}

	if len(tracks) == 0 {
		return domain.ArchiveWeek{}, ErrArchiveWeekNotFound
	}

	standings := contest.Rank(tracks)
	return domain.ArchiveWeek{
		Week:      week,
		Winner:    contest.Winner(standings),
		Standings: standings,
	}, nil
}

var _ domain.ArchiveBrowser = (*View)(nil)
