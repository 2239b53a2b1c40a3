// Pacote contest implementa as regras do concurso semanal: identidade da sessão, envio de faixa,
// voto e ranking da semana aberta.
package contest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marcelojr/track-battle/internal/app/weekclock"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/ids"
	"github.com/marcelojr/track-battle/internal/platform/metrics"
)

var (
	ErrNameRequired      = errors.New("nome de exibicao obrigatorio")
	ErrTrackNameRequired = errors.New("nome da faixa obrigatorio")
	ErrAudioRequired     = errors.New("arquivo de audio obrigatorio")
	ErrNotAudio          = errors.New("arquivo nao e audio")
	ErrAudioTooLarge     = errors.New("arquivo de audio grande demais")
	ErrAlreadySubmitted  = errors.New("faixa ja enviada nesta semana")
	ErrAlreadyVoted      = errors.New("voto ja registrado nesta semana")
	ErrSelfVote          = errors.New("nao e permitido votar na propria faixa")
	ErrUnknownTrack      = errors.New("faixa nao encontrada")
	ErrTrackNotInWeek    = errors.New("faixa nao pertence a semana aberta")
	ErrUploadFailed      = errors.New("falha no upload do audio")
	ErrSaveFailed        = errors.New("falha ao salvar faixa")
	ErrVoteFailed        = errors.New("falha ao registrar voto")
	ErrVoteNotCounted    = errors.New("voto registrado mas contador nao atualizado")
)

const defaultMaxAudioBytes int64 = 25 << 20

// DurationProber estima a duração de um áudio; erros são ignorados pelo envio.
type DurationProber interface {
	Duration(contentType, name string, data []byte) (time.Duration, error)
}

type Options struct {
	// AtomicVotes troca o incremento ler-e-gravar por votes = votes + 1 no banco.
	AtomicVotes   bool
	MaxAudioBytes int64
	Prober        DurationProber
	Logger        *slog.Logger
}

// Service concentra as regras do concurso e delega armazenamento, fila e contadores.
type Service struct {
	tracks      domain.TrackRepository
	votes       domain.VoteRepository
	objects     domain.ObjectStorage
	contador    domain.Contador
	fila        domain.Fila
	antifraude  domain.Antifraude
	clock       domain.Clock
	ids         *ids.Generator
	eligibility *Eligibility
	prober      DurationProber
	log         *slog.Logger
	opts        Options
}

func NewService(
	tracks domain.TrackRepository,
	votes domain.VoteRepository,
	objects domain.ObjectStorage,
	contador domain.Contador,
	fila domain.Fila,
	antifraude domain.Antifraude,
	clock domain.Clock,
	idsGen *ids.Generator,
	opts Options,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = defaultMaxAudioBytes
	}
	return &Service{
		tracks:      tracks,
		votes:       votes,
		objects:     objects,
		contador:    contador,
		fila:        fila,
		antifraude:  antifraude,
		clock:       clock,
		ids:         idsGen,
		eligibility: NewEligibility(tracks, votes, opts.Logger),
		prober:      opts.Prober,
		log:         opts.Logger,
		opts:        opts,
	}
}

func (s *Service) CurrentWeek() domain.WeekKey {
	return weekclock.CurrentWeekKey(s.clock.Agora())
}

func (s *Service) TimeLeft() time.Duration {
	return weekclock.Remaining(s.clock.Agora())
}

// SyncSession alinha a sessão com a semana corrente. Na virada as flags são descartadas e
// recalculadas a partir do banco. Retorna true quando a sessão mudou.
func (s *Service) SyncSession(ctx context.Context, sess *domain.Session) bool {
	changed := false
	if sess.ActiveTab == "" {
		sess.ActiveTab = domain.TabWeek
		changed = true
	}

	week := s.CurrentWeek()
	if sess.Week == week {
		return changed
	}

	sess.ResetWeek(week)
	if sess.UserName != "" {
		s.refreshEligibility(ctx, sess)
	}
	sess.UpdatedAt = s.clock.Agora()
	return true
}

// SetUserName troca o nome de exibição. Um nome diferente zera as flags antes de consultar o banco.
func (s *Service) SetUserName(ctx context.Context, sess *domain.Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	s.SyncSession(ctx, sess)
	if name != sess.UserName {
		sess.HasUploadedThisWeek = false
		sess.VotedThisWeek = false
	}
	sess.UserName = name
	s.refreshEligibility(ctx, sess)
	sess.UpdatedAt = s.clock.Agora()
	return nil
}

func (s *Service) refreshEligibility(ctx context.Context, sess *domain.Session) {
	if s.eligibility.HasVoted(ctx, sess.UserName, sess.Week) {
		sess.VotedThisWeek = true
	}
	if s.eligibility.HasSubmitted(ctx, sess.UserName, sess.Week) {
		sess.HasUploadedThisWeek = true
	}
}

// ValidateAudio é a checagem feita na escolha do arquivo e repetida no envio.
func (s *Service) ValidateAudio(f domain.AudioFile) error {
	if len(f.Data) == 0 {
		return ErrAudioRequired
	}
	if !strings.HasPrefix(strings.ToLower(f.ContentType), "audio/") {
		return ErrNotAudio
	}
	if int64(len(f.Data)) > s.opts.MaxAudioBytes {
		return fmt.Errorf("%w: %s excede o limite de %s", ErrAudioTooLarge,
			humanize.Bytes(uint64(len(f.Data))), humanize.Bytes(uint64(s.opts.MaxAudioBytes)))
	}
	return nil
}

// Submit envia a faixa da semana: valida, grava o áudio, resolve a URL pública e cria o registro.
// Nenhuma escrita acontece se alguma validação falhar. Um áudio gravado cujo registro falhou
// fica órfão no armazenamento.
func (s *Service) Submit(ctx context.Context, sess *domain.Session, sub domain.Submission) (domain.Track, error) {
	s.SyncSession(ctx, sess)

	if err := s.validateSubmission(sess, sub); err != nil {
		metrics.ObserveSubmission("rejected")
		return domain.Track{}, err
	}

	week := sess.Week
	if s.antifraude != nil {
		attempt := domain.Attempt{Action: domain.ActionSubmit, Week: week, UserName: sess.UserName, Origin: sub.Origin}
		if err := s.antifraude.Validar(ctx, attempt); err != nil {
			metrics.ObserveSubmission("rate_limited")
			return domain.Track{}, err
		}
	}

	now := s.clock.Agora()
	audio := sub.Audio
	name := ObjectName(week, sess.UserName, now, audio.Name, audio.ContentType)

	if err := s.objects.Upload(ctx, name, audio.Data, audio.ContentType); err != nil {
		s.log.Error("falha no upload do audio", "object", name, "user", sess.UserName, "err", err)
		metrics.ObserveSubmission("upload_failed")
		return domain.Track{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	metrics.ObserveUploadBytes(len(audio.Data))

	track := domain.Track{
		ID:         domain.TrackID(s.ids.NewAt(now)),
		TrackName:  strings.TrimSpace(sub.TrackName),
		UserName:   sess.UserName,
		Week:       week,
		Votes:      0,
		AudioURL:   s.objects.PublicURL(name),
		DurationMS: s.probeDuration(audio, name),
		CreatedAt:  now,
	}

	if err := s.tracks.Create(ctx, track); err != nil {
		s.log.Error("falha ao salvar faixa; audio ficou orfao", "object", name, "user", sess.UserName, "err", err)
		metrics.ObserveSubmission("save_failed")
		return domain.Track{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	sess.HasUploadedThisWeek = true
	sess.TrackNameDraft = ""
	sess.UpdatedAt = now
	s.bumpCounter(ctx, CounterKeySubmissions(week))
	metrics.ObserveSubmission("ok")

	s.log.Info("faixa enviada",
		"track_id", track.ID,
		"user", track.UserName,
		"week", week,
		"size", humanize.Bytes(uint64(len(audio.Data))),
	)
	return track, nil
}

func (s *Service) validateSubmission(sess *domain.Session, sub domain.Submission) error {
	if sess.UserName == "" {
		return ErrNameRequired
	}
	if sess.HasUploadedThisWeek {
		return ErrAlreadySubmitted
	}
	if strings.TrimSpace(sub.TrackName) == "" {
		return ErrTrackNameRequired
	}
	if sub.Audio == nil {
		return ErrAudioRequired
	}
	return s.ValidateAudio(*sub.Audio)
}

func (s *Service) probeDuration(audio *domain.AudioFile, name string) int64 {
	if s.prober == nil {
		return 0
	}
	d, err := s.prober.Duration(audio.ContentType, audio.Name, audio.Data)
	if err != nil {
		s.log.Debug("duracao do audio indisponivel", "object", name, "err", err)
		return 0
	}
	return d.Milliseconds()
}

// Vote registra o voto da sessão em uma faixa da semana aberta. A ordem das checagens importa:
// voto na própria faixa é recusado mesmo que a sessão já tenha votado, e um segundo voto não
// faz nenhuma escrita.
func (s *Service) Vote(ctx context.Context, sess *domain.Session, id domain.TrackID, origin domain.Origin) error {
	s.SyncSession(ctx, sess)

	if sess.UserName == "" {
		metrics.ObserveVote("rejected")
		return ErrNameRequired
	}

	track, err := s.tracks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveVote("rejected")
			return ErrUnknownTrack
		}
		return err
	}

	if track.UserName == sess.UserName {
		metrics.ObserveVote("rejected")
		return ErrSelfVote
	}
	if sess.VotedThisWeek {
		metrics.ObserveVote("rejected")
		return ErrAlreadyVoted
	}
	if track.Week != sess.Week {
		metrics.ObserveVote("rejected")
		return ErrTrackNotInWeek
	}

	if s.antifraude != nil {
		attempt := domain.Attempt{Action: domain.ActionVote, Week: sess.Week, UserName: sess.UserName, Origin: origin}
		if err := s.antifraude.Validar(ctx, attempt); err != nil {
			metrics.ObserveVote("rate_limited")
			return err
		}
	}

	now := s.clock.Agora()
	vote := domain.Vote{
		ID:        domain.VoteID(s.ids.NewAt(now)),
		TrackID:   track.ID,
		UserName:  sess.UserName,
		Week:      sess.Week,
		CreatedAt: now,
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		s.log.Error("falha ao registrar voto", "track_id", track.ID, "user", sess.UserName, "err", err)
		metrics.ObserveVote("insert_failed")
		return fmt.Errorf("%w: %v", ErrVoteFailed, err)
	}

	if err := s.incrementVotes(ctx, track.ID); err != nil {
		// O voto existe mas o contador ficou para trás; o worker recalcula a partir da tabela de votos.
		s.log.Error("falha ao incrementar votos da faixa", "track_id", track.ID, "vote_id", vote.ID, "err", err)
		s.requestRecount(ctx, track, "increment_failed")
		sess.VotedThisWeek = true
		sess.UpdatedAt = now
		metrics.ObserveVote("not_counted")
		return fmt.Errorf("%w: %v", ErrVoteNotCounted, err)
	}

	sess.VotedThisWeek = true
	sess.UpdatedAt = now
	s.bumpCounter(ctx, CounterKeyVotes(sess.Week))
	metrics.ObserveVote("ok")
	return nil
}

func (s *Service) incrementVotes(ctx context.Context, id domain.TrackID) error {
	if s.opts.AtomicVotes {
		return s.tracks.AddVote(ctx, id)
	}

	current, err := s.tracks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tracks.IncrementVotes(ctx, id, current.Votes)
}

func (s *Service) requestRecount(ctx context.Context, track domain.Track, reason string) {
	if s.fila == nil {
		return
	}
	err := s.fila.PublicarRecontagem(ctx, domain.Recount{
		TrackID:     track.ID,
		Week:        track.Week,
		Reason:      reason,
		RequestedAt: s.clock.Agora(),
	})
	if err != nil {
		s.log.Error("falha ao publicar recontagem", "track_id", track.ID, "err", err)
	}
}

func (s *Service) bumpCounter(ctx context.Context, key string) {
	if s.contador == nil {
		return
	}
	if _, err := s.contador.Incrementar(ctx, key, 1); err != nil {
		s.log.Warn("falha ao incrementar contador", "key", key, "err", err)
	}
}

// Standings lista as faixas da semana já ranqueadas.
func (s *Service) Standings(ctx context.Context, week domain.WeekKey) ([]domain.Standing, error) {
	tracks, err := s.tracks.ListForWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("contest: listar faixas da semana %s: %w", week, err)
	}
	return Rank(tracks), nil
}

// WeekStats lê os contadores do Redis; sem eles, agrega a partir das faixas salvas.
func (s *Service) WeekStats(ctx context.Context, week domain.WeekKey) (domain.WeekStats, error) {
	if s.contador != nil {
		keys := []string{CounterKeySubmissions(week), CounterKeyVotes(week)}
		values, err := s.contador.ObterTodos(ctx, keys)
		if err == nil && values[keys[0]] > 0 {
			return domain.WeekStats{Week: week, Submissions: values[keys[0]], Votes: values[keys[1]]}, nil
		}
		if err != nil {
			s.log.Warn("contadores da semana indisponiveis", "week", week, "err", err)
		}
	}

	tracks, err := s.tracks.ListForWeek(ctx, week)
	if err != nil {
		return domain.WeekStats{}, fmt.Errorf("contest: estatisticas da semana %s: %w", week, err)
	}
	stats := domain.WeekStats{Week: week, Submissions: int64(len(tracks))}
	for _, t := range tracks {
		stats.Votes += t.Votes
	}
	return stats, nil
}

var _ domain.ContestService = (*Service)(nil)
