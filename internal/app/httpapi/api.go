// Pacote httpapi expõe a API JSON do concurso e traduz requisições HTTP para o serviço.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/marcelojr/track-battle/internal/app/archive"
	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/app/weekclock"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/antifraude"
	"github.com/marcelojr/track-battle/internal/platform/metrics"
)

// SessionLoader carrega e persiste a sessão do navegador (sessions.Manager em produção).
type SessionLoader interface {
	Load(w http.ResponseWriter, r *http.Request) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
}

// API empacota os handlers ligados ao serviço do concurso, ao arquivo e às sessões.
type API struct {
	service   domain.ContestService
	archive   domain.ArchiveBrowser
	sessions  SessionLoader
	logger    *slog.Logger
	maxUpload int64
}

func New(service domain.ContestService, archive domain.ArchiveBrowser, sessions SessionLoader, logger *slog.Logger, maxUpload int64) *API {
	return &API{service: service, archive: archive, sessions: sessions, logger: logger, maxUpload: maxUpload}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/session", a.handleSession)
	mux.HandleFunc("/api/week", a.onlyGet(a.obterSemana))
	mux.HandleFunc("/api/clock", a.onlyGet(a.obterRelogio))
	mux.HandleFunc("/api/tracks", a.onlyPost(a.enviarFaixa))
	mux.HandleFunc("/api/tracks/validate", a.onlyPost(a.validarAudio))
	mux.HandleFunc("/api/votes", a.onlyPost(a.registrarVoto))
	mux.HandleFunc("/api/archives", a.onlyGet(a.listarArquivo))
	mux.HandleFunc("/api/archives/", a.onlyGet(a.obterSemanaArquivada))
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) onlyGet(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (a *API) onlyPost(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// sessao carrega a sessão e a alinha com a semana aberta, salvando se algo mudou.
func (a *API) sessao(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	sess, err := a.sessions.Load(w, r)
	if err != nil {
		a.logger.Error("falha ao carregar sessao", "err", err)
		responderErro(w, err)
		return nil, false
	}
	if a.service.SyncSession(r.Context(), sess) {
		a.salvar(r, sess)
	}
	return sess, true
}

func (a *API) salvar(r *http.Request, sess *domain.Session) {
	if err := a.sessions.Save(r.Context(), sess); err != nil {
		a.logger.Error("falha ao salvar sessao", "err", err, "session", sess.ID)
	}
}

type sessionView struct {
	UserName            string         `json:"user_name"`
	Week                domain.WeekKey `json:"week"`
	State               string         `json:"state"`
	HasUploadedThisWeek bool           `json:"has_uploaded_this_week"`
	VotedThisWeek       bool           `json:"voted_this_week"`
	ActiveTab           domain.Tab     `json:"active_tab"`
	SelectedArchiveWeek domain.WeekKey `json:"selected_archive_week,omitempty"`
	TrackNameDraft      string         `json:"track_name_draft,omitempty"`
}

func viewSessao(sess *domain.Session) sessionView {
	return sessionView{
		UserName:            sess.UserName,
		Week:                sess.Week,
		State:               sess.State().String(),
		HasUploadedThisWeek: sess.HasUploadedThisWeek,
		VotedThisWeek:       sess.VotedThisWeek,
		ActiveTab:           sess.ActiveTab,
		SelectedArchiveWeek: sess.SelectedArchiveWeek,
		TrackNameDraft:      sess.TrackNameDraft,
	}
}

type sessionRequest struct {
	UserName       *string `json:"user_name"`
	ActiveTab      *string `json:"active_tab"`
	TrackNameDraft *string `json:"track_name_draft"`
	ArchiveWeek    *string `json:"archive_week"`
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sess, ok := a.sessao(w, r)
		if !ok {
			return
		}
		responderJSON(w, http.StatusOK, viewSessao(sess))
	case http.MethodPost:
		a.atualizarSessao(w, r)
	default:
		http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
	}
}

func (a *API) atualizarSessao(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("payload invalido ao atualizar sessao", "err", err)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	sess, ok := a.sessao(w, r)
	if !ok {
		return
	}

	if req.ActiveTab != nil {
		switch tab := domain.Tab(*req.ActiveTab); tab {
		case domain.TabWeek, domain.TabArchive:
			sess.ActiveTab = tab
		default:
			http.Error(w, "aba invalida", http.StatusBadRequest)
			return
		}
	}
	if req.TrackNameDraft != nil {
		sess.TrackNameDraft = *req.TrackNameDraft
	}
	if req.ArchiveWeek != nil {
		sess.SelectedArchiveWeek = domain.WeekKey(*req.ArchiveWeek)
	}
	if req.UserName != nil {
		if err := a.service.SetUserName(r.Context(), sess, *req.UserName); err != nil {
			responderErro(w, err)
			return
		}
	}

	a.salvar(r, sess)
	responderJSON(w, http.StatusOK, viewSessao(sess))
}

type clockView struct {
	Week            domain.WeekKey `json:"week"`
	TimeLeft        string         `json:"time_left"`
	TimeLeftSeconds int64          `json:"time_left_seconds"`
}

func (a *API) relogio() clockView {
	left := a.service.TimeLeft()
	if left < 0 {
		left = 0
	}
	return clockView{
		Week:            a.service.CurrentWeek(),
		TimeLeft:        weekclock.FormatDuration(left),
		TimeLeftSeconds: int64(left / time.Second),
	}
}

func (a *API) obterRelogio(w http.ResponseWriter, r *http.Request) {
	responderJSON(w, http.StatusOK, a.relogio())
}

type rowView struct {
	domain.Standing
	Button    contest.VoteButton `json:"button"`
	CanVote   bool               `json:"can_vote"`
	IsYourOwn bool               `json:"is_your_own"`
}

type weekView struct {
	clockView
	Stats     domain.WeekStats `json:"stats"`
	Session   sessionView      `json:"session"`
	Standings []rowView        `json:"standings"`
}

func (a *API) obterSemana(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessao(w, r)
	if !ok {
		return
	}

	// Falha na leitura vira lista vazia; o usuário não vê o erro.
	standings, err := a.service.Standings(r.Context(), sess.Week)
	if err != nil {
		a.logger.Warn("erro ao listar faixas", "err", err, "week", sess.Week)
		metrics.IncListingError("api")
		standings = nil
	}

	stats, err := a.service.WeekStats(r.Context(), sess.Week)
	if err != nil {
		a.logger.Warn("erro ao obter estatisticas", "err", err, "week", sess.Week)
	}

	rows := make([]rowView, len(standings))
	for i, s := range standings {
		button, canVote := contest.ButtonFor(*sess, s.Track)
		rows[i] = rowView{
			Standing:  s,
			Button:    button,
			CanVote:   canVote,
			IsYourOwn: sess.UserName != "" && s.Track.UserName == sess.UserName,
		}
	}

	responderJSON(w, http.StatusOK, weekView{
		clockView: a.relogio(),
		Stats:     stats,
		Session:   viewSessao(sess),
		Standings: rows,
	})
}

// lerAudio lê o arquivo do campo "audio" do multipart. Ausência do campo não é erro.
func (a *API) lerAudio(r *http.Request) (*domain.AudioFile, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &domain.AudioFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (a *API) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	// folga para os demais campos do formulário
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responderErro(w, contest.ErrAudioTooLarge)
			return false
		}
		a.logger.Warn("multipart invalido", "err", err)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) validarAudio(w http.ResponseWriter, r *http.Request) {
	if !a.parseMultipart(w, r) {
		return
	}
	audio, err := a.lerAudio(r)
	if err != nil {
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}
	if audio == nil {
		responderErro(w, contest.ErrAudioRequired)
		return
	}
	if err := a.service.ValidateAudio(*audio); err != nil {
		responderErro(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) enviarFaixa(w http.ResponseWriter, r *http.Request) {
	if !a.parseMultipart(w, r) {
		return
	}
	sess, ok := a.sessao(w, r)
	if !ok {
		return
	}

	audio, err := a.lerAudio(r)
	if err != nil {
		a.logger.Warn("arquivo de audio ilegivel", "err", err)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	track, err := a.service.Submit(r.Context(), sess, domain.Submission{
		TrackName: r.FormValue("track_name"),
		Audio:     audio,
		Origin:    origem(r),
	})
	if err != nil {
		a.logger.Warn("falha ao enviar faixa", "err", err, "user", sess.UserName, "status", statusFromError(err))
		responderErro(w, err)
		return
	}

	a.salvar(r, sess)
	responderJSON(w, http.StatusCreated, map[string]any{
		"track":   track,
		"message": contest.MsgSubmitted,
	})
}

type voteRequest struct {
	TrackID string `json:"track_id"`
}

func (a *API) registrarVoto(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("payload invalido ao registrar voto", "err", err)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	sess, ok := a.sessao(w, r)
	if !ok {
		return
	}

	err := a.service.Vote(r.Context(), sess, domain.TrackID(req.TrackID), origem(r))
	if errors.Is(err, contest.ErrVoteNotCounted) {
		// voto gravado; a sessão já foi marcada
		a.salvar(r, sess)
	}
	if err != nil {
		a.logger.Warn("falha ao registrar voto", "err", err, "track", req.TrackID, "status", statusFromError(err))
		responderErro(w, err)
		return
	}

	a.salvar(r, sess)
	responderJSON(w, http.StatusOK, map[string]string{"status": "votado", "message": contest.MsgVoted})
	a.logger.Info("voto registrado", "track", req.TrackID, "week", sess.Week)
}

func (a *API) listarArquivo(w http.ResponseWriter, r *http.Request) {
	responderJSON(w, http.StatusOK, map[string]any{"weeks": a.archive.Weeks(r.Context())})
}

func (a *API) obterSemanaArquivada(w http.ResponseWriter, r *http.Request) {
	week := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/archives/"), "/")
	if week == "" || strings.Contains(week, "/") {
		http.NotFound(w, r)
		return
	}

	resultado, err := a.archive.Week(r.Context(), domain.WeekKey(week))
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, resultado)
}

func origem(r *http.Request) domain.Origin {
	ip := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return domain.Origin{IP: ip, UserAgent: r.UserAgent()}
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusFor mapeia os erros do domínio para códigos HTTP.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contest.ErrNameRequired),
		errors.Is(err, contest.ErrTrackNameRequired),
		errors.Is(err, contest.ErrAudioRequired),
		errors.Is(err, contest.ErrNotAudio):
		return http.StatusBadRequest
	case errors.Is(err, contest.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, contest.ErrSelfVote):
		return http.StatusForbidden
	case errors.Is(err, contest.ErrUnknownTrack), errors.Is(err, archive.ErrArchiveWeekNotFound):
		return http.StatusNotFound
	case errors.Is(err, contest.ErrAlreadySubmitted),
		errors.Is(err, contest.ErrAlreadyVoted),
		errors.Is(err, contest.ErrTrackNotInWeek):
		return http.StatusConflict
	case errors.Is(err, antifraude.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, contest.ErrVoteNotCounted):
		return http.StatusAccepted
	case errors.Is(err, contest.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func responderErro(w http.ResponseWriter, err error) {
	responderJSON(w, StatusFor(err), map[string]string{
		"erro":    err.Error(),
		"message": contest.UserMessage(err),
	})
}

func statusFromError(err error) string {
	switch StatusFor(err) {
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusConflict, http.StatusForbidden:
		return "conflict"
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusAccepted:
		return "pending"
	default:
		return "error"
	}
}
