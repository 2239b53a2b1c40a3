package web

// Pacote web centraliza a camada HTML (SSR) do concurso: semana aberta e arquivo.

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marcelojr/track-battle/internal/app/archive"
	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/app/weekclock"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/metrics"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

type SessionLoader interface {
	Load(w http.ResponseWriter, r *http.Request) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
}

// Frontend renderiza as telas da semana e do arquivo.
type Frontend struct {
	templates *template.Template
	service   domain.ContestService
	archive   domain.ArchiveBrowser
	sessions  SessionLoader
	logger    *slog.Logger
	maxUpload int64
}

// New carrega os templates embutidos e registra as dependências necessárias.
func New(service domain.ContestService, archive domain.ArchiveBrowser, sessions SessionLoader, logger *slog.Logger, maxUpload int64) (*Frontend, error) {
	if service == nil || archive == nil || sessions == nil {
		return nil, fmt.Errorf("frontend: dependencias obrigatorias ausentes")
	}
	if logger == nil {
		logger = slog.Default()
	}
	funcs := template.FuncMap{"archiveLink": archiveLink}
	tmpl, err := template.New("web").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.gohtml",
		"templates/week.gohtml",
		"templates/archive.gohtml",
	)
	if err != nil {
		return nil, err
	}

	for _, name := range []string{"week_body", "archive_body", "layout"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("frontend: template %s não encontrado", name)
		}
	}

	return &Frontend{
		templates: tmpl,
		service:   service,
		archive:   archive,
		sessions:  sessions,
		logger:    logger,
		maxUpload: maxUpload,
	}, nil
}

// Register expõe as rotas HTML na mesma mux da API.
func (f *Frontend) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", f.handleRoot)
	mux.HandleFunc("/week", f.handleWeek)
	mux.HandleFunc("/archive", f.handleArchive)
	mux.HandleFunc("/name", f.postOnly(f.handleName))
	mux.HandleFunc("/submit", f.postOnly(f.handleSubmit))
	mux.HandleFunc("/vote", f.postOnly(f.handleVote))
}

func (f *Frontend) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// handleRoot reabre a aba em que o usuário estava.
func (f *Frontend) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}
	if sess.ActiveTab == domain.TabArchive {
		http.Redirect(w, r, "/archive", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/week", http.StatusFound)
}

func (f *Frontend) sessao(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	sess, err := f.sessions.Load(w, r)
	if err != nil {
		f.logger.Error("falha ao carregar sessao", "err", err)
		http.Error(w, "sessao indisponivel", http.StatusServiceUnavailable)
		return nil, false
	}
	if f.service.SyncSession(r.Context(), sess) {
		f.salvar(r, sess)
	}
	return sess, true
}

func (f *Frontend) salvar(r *http.Request, sess *domain.Session) {
	if err := f.sessions.Save(r.Context(), sess); err != nil {
		f.logger.Error("falha ao salvar sessao", "err", err, "session", sess.ID)
	}
}

type toast struct {
	Msg   string
	Error bool
}

type weekPageData struct {
	WeekLabel      string
	TimeLeft       string
	UserName       string
	State          string
	HasUploaded    bool
	Voted          bool
	TrackNameDraft string
	MaxUpload      string
	Rows           []trackRowView
	TrackCount     int
	Stats          domain.WeekStats
	Toast          *toast
}

type trackRowView struct {
	ID        string
	Position  int
	TrackName string
	UserName  string
	Votes     int64
	AudioURL  string
	Duration  string
	Leading   bool
	Button    string
	CanVote   bool
	Title     string
}

func (f *Frontend) handleWeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}
	if sess.ActiveTab != domain.TabWeek {
		sess.ActiveTab = domain.TabWeek
		f.salvar(r, sess)
	}
	f.renderWeek(w, r, sess, toastFromQuery(r, sess))
}

func (f *Frontend) renderWeek(w http.ResponseWriter, r *http.Request, sess *domain.Session, t *toast) {
	ctx := r.Context()
	data := weekPageData{
		WeekLabel:      weekLabel(sess.Week),
		TimeLeft:       weekclock.FormatDuration(f.service.TimeLeft()),
		UserName:       sess.UserName,
		State:          sess.State().String(),
		HasUploaded:    sess.HasUploadedThisWeek,
		Voted:          sess.VotedThisWeek,
		TrackNameDraft: sess.TrackNameDraft,
		MaxUpload:      humanize.Bytes(uint64(f.maxUpload)),
		Toast:          t,
	}

	// Falha na leitura vira lista vazia; o usuário não vê o erro.
	standings, err := f.service.Standings(ctx, sess.Week)
	if err != nil {
		f.logger.Warn("erro ao listar faixas", "err", err, "week", sess.Week)
		metrics.IncListingError("web")
		standings = nil
	}
	for _, s := range standings {
		data.Rows = append(data.Rows, makeRow(*sess, s, true))
	}
	data.TrackCount = len(standings)

	if stats, err := f.service.WeekStats(ctx, sess.Week); err == nil {
		data.Stats = stats
	}

	f.render(w, http.StatusOK, "week_body", "This Week", data)
}

func makeRow(sess domain.Session, s domain.Standing, votable bool) trackRowView {
	row := trackRowView{
		ID:        string(s.Track.ID),
		Position:  s.Rank + 1,
		TrackName: s.Track.TrackName,
		UserName:  s.Track.UserName,
		Votes:     s.Track.Votes,
		AudioURL:  s.Track.AudioURL,
		Duration:  formatDuration(s.Track.DurationMS),
		Leading:   s.Leading,
	}
	if !votable {
		return row
	}
	button, canVote := contest.ButtonFor(sess, s.Track)
	row.Button = string(button)
	row.CanVote = canVote
	switch button {
	case contest.ButtonVoted:
		row.Title = "Already voted this week"
	case contest.ButtonYours:
		row.Title = "Can't vote for your own track"
	default:
		row.Title = "Vote for this track"
	}
	return row
}

func (f *Frontend) handleName(w http.ResponseWriter, r *http.Request) {
	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
		return
	}

	if err := f.service.SetUserName(r.Context(), sess, r.PostFormValue("user_name")); err != nil {
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
		return
	}
	f.salvar(r, sess)
	http.Redirect(w, r, "/week?status=name", http.StatusSeeOther)
}

func (f *Frontend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, f.maxUpload+1<<20)
	parseErr := r.ParseMultipartForm(8 << 20)

	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}
	if parseErr != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(parseErr, &tooLarge) {
			parseErr = contest.ErrAudioTooLarge
		}
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(parseErr), Error: true})
		return
	}

	trackName := r.FormValue("track_name")
	audio, err := readAudio(r)
	if err != nil {
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
		return
	}

	_, err = f.service.Submit(r.Context(), sess, domain.Submission{
		TrackName: trackName,
		Audio:     audio,
		Origin:    domain.Origin{IP: clientIP(r), UserAgent: r.UserAgent()},
	})
	if err != nil {
		f.logger.Warn("falha ao enviar faixa", "err", err, "user", sess.UserName)
		if !sess.HasUploadedThisWeek {
			sess.TrackNameDraft = trackName
			f.salvar(r, sess)
		}
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
		return
	}

	f.salvar(r, sess)
	http.Redirect(w, r, "/week?status=submitted", http.StatusSeeOther)
}

func readAudio(r *http.Request) (*domain.AudioFile, error) {
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
	return &domain.AudioFile{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}, nil
}

func (f *Frontend) handleVote(w http.ResponseWriter, r *http.Request) {
	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
		return
	}

	id := domain.TrackID(strings.TrimSpace(r.PostFormValue("track_id")))
	err := f.service.Vote(r.Context(), sess, id, domain.Origin{IP: clientIP(r), UserAgent: r.UserAgent()})
	switch {
	case err == nil:
		f.salvar(r, sess)
		http.Redirect(w, r, "/week?status=voted", http.StatusSeeOther)
	case errors.Is(err, contest.ErrAlreadyVoted):
		// segundo clique não faz nada
		http.Redirect(w, r, "/week", http.StatusSeeOther)
	case errors.Is(err, contest.ErrVoteNotCounted):
		f.salvar(r, sess)
		f.logger.Warn("voto sem contagem", "err", err, "track", id)
		http.Redirect(w, r, "/week?status=vote_pending", http.StatusSeeOther)
	default:
		f.logger.Warn("falha ao registrar voto", "err", err, "track", id)
		f.renderWeek(w, r, sess, &toast{Msg: contest.UserMessage(err), Error: true})
	}
}

type archivePageData struct {
	Weeks    []weekOption
	Selected string
	Label    string
	Winner   *trackRowView
	Rows     []trackRowView
	Error    string
}

type weekOption struct {
	Key      string
	Label    string
	Selected bool
}

func (f *Frontend) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := f.sessao(w, r)
	if !ok {
		return
	}

	weeks := f.archive.Weeks(ctx)
	selected := domain.WeekKey(strings.TrimSpace(r.URL.Query().Get("week")))
	if selected == "" {
		selected = sess.SelectedArchiveWeek
	}
	if selected == "" && len(weeks) > 0 {
		selected = weeks[0]
	}

	if sess.ActiveTab != domain.TabArchive || sess.SelectedArchiveWeek != selected {
		sess.ActiveTab = domain.TabArchive
		sess.SelectedArchiveWeek = selected
		f.salvar(r, sess)
	}

	data := archivePageData{Selected: string(selected), Label: weekLabel(selected)}
	for _, week := range weeks {
		data.Weeks = append(data.Weeks, weekOption{Key: string(week), Label: weekLabel(week), Selected: week == selected})
	}

	if selected == "" {
		data.Error = "No archived weeks yet."
		f.render(w, http.StatusOK, "archive_body", "Archives", data)
		return
	}

	status := http.StatusOK
	result, err := f.archive.Week(ctx, selected)
	switch {
	case errors.Is(err, archive.ErrArchiveWeekNotFound):
		status = http.StatusNotFound
		data.Error = "That week is not in the archive."
	case err != nil:
		f.logger.Error("erro ao carregar semana arquivada", "err", err, "week", selected)
		data.Error = "Could not load that week."
	default:
		for _, s := range result.Standings {
			data.Rows = append(data.Rows, makeRow(*sess, s, false))
		}
		if len(data.Rows) > 0 {
			winner := data.Rows[0]
			data.Winner = &winner
		}
	}

	f.render(w, status, "archive_body", "Archives", data)
}

type layoutData struct {
	Title   string
	Tab     string
	Content template.HTML
}

func (f *Frontend) render(w http.ResponseWriter, status int, tmpl, title string, data any) {
	var content strings.Builder
	if err := f.templates.ExecuteTemplate(&content, tmpl, data); err != nil {
		f.logger.Error("erro ao montar pagina", "err", err, "template", tmpl)
		http.Error(w, "erro ao montar a página", http.StatusInternalServerError)
		return
	}

	page := layoutData{
		Title:   title,
		Tab:     strings.TrimSuffix(tmpl, "_body"),
		Content: template.HTML(content.String()),
	}

	var out bytes.Buffer
	if err := f.templates.ExecuteTemplate(&out, "layout", page); err != nil {
		f.logger.Error("erro ao renderizar pagina", "err", err)
		http.Error(w, "erro ao montar a página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = out.WriteTo(w)
}

func toastFromQuery(r *http.Request, sess *domain.Session) *toast {
	switch r.URL.Query().Get("status") {
	case "submitted":
		return &toast{Msg: contest.MsgSubmitted}
	case "voted":
		return &toast{Msg: contest.MsgVoted}
	case "vote_pending":
		return &toast{Msg: contest.MsgVotePending, Error: true}
	case "name":
		return &toast{Msg: fmt.Sprintf(contest.MsgNameSaved, sess.UserName)}
	default:
		return nil
	}
}

// weekLabel escreve "FEBRUARY 9" para a chave 2026-02-09.
func weekLabel(week domain.WeekKey) string {
	t, err := time.Parse("2006-01-02", string(week))
	if err != nil {
		return string(week)
	}
	return strings.ToUpper(t.Format("January 2"))
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// archiveLink monta o link do seletor de semanas.
func archiveLink(week string) string {
	return "/archive?week=" + url.QueryEscape(week)
}
