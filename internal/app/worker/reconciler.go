// Pacote worker mantém o contador denormalizado de votos alinhado com a tabela de votos.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/app/weekclock"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/metrics"
)

// Reconciler atende os pedidos de recontagem da fila e varre semanas encerradas.
type Reconciler struct {
	tracks   domain.TrackRepository
	votes    domain.VoteRepository
	contador domain.Contador
	clock    domain.Clock
	log      *slog.Logger
}

// votes é opcional: sem ele toda faixa da semana é regravada na varredura.
func NewReconciler(tracks domain.TrackRepository, votes domain.VoteRepository, contador domain.Contador, clock domain.Clock, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		tracks:   tracks,
		votes:    votes,
		contador: contador,
		clock:    clock,
		log:      log,
	}
}

// Process recalcula o total de uma faixa. Faixa inexistente não volta para a fila.
func (r *Reconciler) Process(ctx context.Context, rc domain.Recount) error {
	start := time.Now()

	total, err := r.tracks.RecountVotes(ctx, rc.TrackID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveRecount("not_found", time.Since(start).Seconds())
			r.log.Warn("recontagem de faixa inexistente", "track_id", rc.TrackID, "reason", rc.Reason)
			return nil
		}
		metrics.ObserveRecount("error", time.Since(start).Seconds())
		return fmt.Errorf("worker: recontar faixa %s: %w", rc.TrackID, err)
	}

	metrics.ObserveRecount("ok", time.Since(start).Seconds())
	r.log.Info("faixa recontada", "track_id", rc.TrackID, "week", rc.Week, "votes", total, "reason", rc.Reason)
	return nil
}

// SweepWeek reconta todas as faixas da semana e acerta o contador de votos do Redis.
// Devolve o total de votos da semana.
func (r *Reconciler) SweepWeek(ctx context.Context, week domain.WeekKey) (int64, error) {
	start := time.Now()

	tracks, err := r.tracks.ListForWeek(ctx, week)
	if err != nil {
		return 0, fmt.Errorf("worker: listar faixas da semana %s: %w", week, err)
	}

	var total, fixed int64
	for _, t := range tracks {
		if r.votes != nil {
			counted, err := r.votes.CountForTrack(ctx, t.ID)
			if err == nil && counted == t.Votes {
				total += counted
				continue
			}
			if err != nil {
				r.log.Warn("falha ao contar votos; recontando", "track_id", t.ID, "err", err)
			}
		}

		n, err := r.tracks.RecountVotes(ctx, t.ID)
		if err != nil {
			metrics.ObserveRecount("error", time.Since(start).Seconds())
			return total, fmt.Errorf("worker: recontar faixa %s: %w", t.ID, err)
		}
		total += n
		fixed++
	}

	r.realign(ctx, contest.CounterKeyVotes(week), total)
	r.realign(ctx, contest.CounterKeySubmissions(week), int64(len(tracks)))

	metrics.ObserveRecount("sweep", time.Since(start).Seconds())
	r.log.Info("semana recontada", "week", week, "tracks", len(tracks), "fixed", fixed, "votes", total)
	return total, nil
}

// realign aplica a diferença no contador; o Contador só sabe incrementar.
func (r *Reconciler) realign(ctx context.Context, key string, want int64) {
	if r.contador == nil {
		return
	}
	have, err := r.contador.Obter(ctx, key)
	if err != nil {
		r.log.Warn("falha ao ler contador", "key", key, "err", err)
		return
	}
	if have == want {
		return
	}
	if _, err := r.contador.Incrementar(ctx, key, want-have); err != nil {
		r.log.Warn("falha ao ajustar contador", "key", key, "err", err)
	}
}

// CatchUp varre a semana anterior à corrente; usado na subida do worker.
func (r *Reconciler) CatchUp(ctx context.Context) error {
	prev, err := weekclock.Previous(weekclock.CurrentWeekKey(r.clock.Agora()))
	if err != nil {
		return err
	}
	_, err = r.SweepWeek(ctx, prev)
	return err
}

// WatchWeek acompanha a virada de semana e varre a semana que acabou de fechar.
func (r *Reconciler) WatchWeek(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := weekclock.CurrentWeekKey(r.clock.Agora())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current := weekclock.CurrentWeekKey(r.clock.Agora())
		if current == last {
			continue
		}
		closed := last
		last = current

		r.log.Info("semana encerrada", "week", closed, "next", current)
		if _, err := r.SweepWeek(ctx, closed); err != nil {
			r.log.Error("falha ao varrer semana encerrada", "week", closed, "err", err)
		}
	}
}
