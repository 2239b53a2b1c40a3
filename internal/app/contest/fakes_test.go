package contest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/ids"
)

var errFalhaStore = errors.New("store indisponivel")

type serviceDependencies struct {
	tracks     *inMemoryTrackRepo
	votes      *inMemoryVoteRepo
	objects    *recordingObjects
	contador   *inMemoryContador
	fila       *recordingFila
	antifraude *switchAntifraude
	clock      *staticClock
	idGen      *ids.Generator
	baseTime   time.Time
}

func newServiceDeps() serviceDependencies {
	// quarta-feira; semana aberta 2026-02-09
	base := time.Date(2026, 2, 11, 20, 0, 0, 0, time.UTC)

	return serviceDependencies{
		tracks:     newInMemoryTrackRepo(),
		votes:      &inMemoryVoteRepo{},
		objects:    newRecordingObjects(),
		contador:   newInMemoryContador(),
		fila:       &recordingFila{},
		antifraude: &switchAntifraude{},
		clock:      &staticClock{now: base},
		idGen:      ids.NewGenerator(),
		baseTime:   base,
	}
}

func (d serviceDependencies) service(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewService(d.tracks, d.votes, d.objects, d.contador, d.fila, d.antifraude, d.clock, d.idGen, opts)
}

type inMemoryTrackRepo struct {
	mu   sync.Mutex
	data map[domain.TrackID]domain.Track

	createErr    error
	existsErr    error
	incrementErr error
	creates      int
	increments   int
	atomicAdds   int
}

func newInMemoryTrackRepo() *inMemoryTrackRepo {
	return &inMemoryTrackRepo{data: make(map[domain.TrackID]domain.Track)}
}

func (r *inMemoryTrackRepo) put(t domain.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[t.ID] = t
}

func (r *inMemoryTrackRepo) Create(_ context.Context, t domain.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.creates++
	r.data[t.ID] = t
	return nil
}

func (r *inMemoryTrackRepo) FindByID(_ context.Context, id domain.TrackID) (domain.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return domain.Track{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *inMemoryTrackRepo) ListForWeek(_ context.Context, week domain.WeekKey) ([]domain.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Track
	for _, t := range r.data {
		if t.Week == week {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *inMemoryTrackRepo) ExistsForUser(_ context.Context, userName string, week domain.WeekKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, t := range r.data {
		if t.UserName == userName && t.Week == week {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryTrackRepo) IncrementVotes(_ context.Context, id domain.TrackID, current int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return r.incrementErr
	}
	t, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.increments++
	t.Votes = current + 1
	r.data[id] = t
	return nil
}

func (r *inMemoryTrackRepo) AddVote(_ context.Context, id domain.TrackID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return r.incrementErr
	}
	t, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.atomicAdds++
	t.Votes++
	r.data[id] = t
	return nil
}

func (r *inMemoryTrackRepo) RecountVotes(context.Context, domain.TrackID) (int64, error) {
	return 0, errors.New("nao usado")
}

func (r *inMemoryTrackRepo) ListWeeks(context.Context, domain.WeekKey) ([]domain.WeekKey, error) {
	return nil, nil
}

type inMemoryVoteRepo struct {
	mu        sync.Mutex
	lista     []domain.Vote
	createErr error
	existsErr error
}

func (r *inMemoryVoteRepo) Create(_ context.Context, v domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.lista = append(r.lista, v)
	return nil
}

func (r *inMemoryVoteRepo) ExistsForUser(_ context.Context, userName string, week domain.WeekKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, v := range r.lista {
		if v.UserName == userName && v.Week == week {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryVoteRepo) CountForTrack(_ context.Context, id domain.TrackID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, v := range r.lista {
		if v.TrackID == id {
			total++
		}
	}
	return total, nil
}

func (r *inMemoryVoteRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lista)
}

type recordingObjects struct {
	mu        sync.Mutex
	objetos   map[string][]byte
	uploadErr error
}

func newRecordingObjects() *recordingObjects {
	return &recordingObjects{objetos: make(map[string][]byte)}
}

func (o *recordingObjects) Upload(_ context.Context, name string, data []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.uploadErr != nil {
		return o.uploadErr
	}
	o.objetos[name] = data
	return nil
}

func (o *recordingObjects) PublicURL(name string) string {
	return "https://cdn.test/audio/" + name
}

func (o *recordingObjects) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objetos)
}

type inMemoryContador struct {
	mu      sync.Mutex
	valores map[string]int64
}

func newInMemoryContador() *inMemoryContador {
	return &inMemoryContador{valores: make(map[string]int64)}
}

func (c *inMemoryContador) Incrementar(_ context.Context, chave string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valores[chave] += delta
	return c.valores[chave], nil
}

func (c *inMemoryContador) Obter(_ context.Context, chave string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valores[chave], nil
}

func (c *inMemoryContador) ObterTodos(_ context.Context, chaves []string) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]int64)
	for _, chave := range chaves {
		result[chave] = c.valores[chave]
	}
	return result, nil
}

type recordingFila struct {
	mu          sync.Mutex
	recontagens []domain.Recount
}

func (f *recordingFila) PublicarRecontagem(_ context.Context, r domain.Recount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recontagens = append(f.recontagens, r)
	return nil
}

func (f *recordingFila) ConsumirRecontagens(context.Context, func(context.Context, domain.Recount) error) error {
	return nil
}

type switchAntifraude struct {
	err        error
	tentativas []domain.Attempt
}

func (a *switchAntifraude) Validar(_ context.Context, attempt domain.Attempt) error {
	a.tentativas = append(a.tentativas, attempt)
	return a.err
}

type staticClock struct {
	now time.Time
}

func (s *staticClock) Agora() time.Time {
	return s.now
}

type fixedProber struct {
	d   time.Duration
	err error
}

func (p fixedProber) Duration(string, string, []byte) (time.Duration, error) {
	return p.d, p.err
}
