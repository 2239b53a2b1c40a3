package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/track-battle/internal/app/archive"
	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/antifraude"
)

const semana domain.WeekKey = "2026-02-09"

// MockContestService implementa domain.ContestService para testes
type MockContestService struct {
	mock.Mock
}

func (m *MockContestService) CurrentWeek() domain.WeekKey { return semana }

func (m *MockContestService) TimeLeft() time.Duration {
	return 2*24*time.Hour + 3*time.Hour + 4*time.Minute
}

func (m *MockContestService) SyncSession(_ context.Context, s *domain.Session) bool {
	if s.Week == semana {
		return false
	}
	s.Week = semana
	return true
}

func (m *MockContestService) SetUserName(ctx context.Context, s *domain.Session, name string) error {
	args := m.Called(ctx, s, name)
	if args.Error(0) == nil {
		s.UserName = name
	}
	return args.Error(0)
}

func (m *MockContestService) ValidateAudio(f domain.AudioFile) error {
	args := m.Called(f)
	return args.Error(0)
}

func (m *MockContestService) Submit(ctx context.Context, s *domain.Session, sub domain.Submission) (domain.Track, error) {
	args := m.Called(ctx, s, sub)
	return args.Get(0).(domain.Track), args.Error(1)
}

func (m *MockContestService) Vote(ctx context.Context, s *domain.Session, id domain.TrackID, origin domain.Origin) error {
	args := m.Called(ctx, s, id, origin)
	return args.Error(0)
}

func (m *MockContestService) Standings(ctx context.Context, week domain.WeekKey) ([]domain.Standing, error) {
	args := m.Called(ctx, week)
	return args.Get(0).([]domain.Standing), args.Error(1)
}

func (m *MockContestService) WeekStats(ctx context.Context, week domain.WeekKey) (domain.WeekStats, error) {
	args := m.Called(ctx, week)
	return args.Get(0).(domain.WeekStats), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Weeks(ctx context.Context) []domain.WeekKey {
	args := m.Called(ctx)
	return args.Get(0).([]domain.WeekKey)
}

func (m *MockArchive) Week(ctx context.Context, week domain.WeekKey) (domain.ArchiveWeek, error) {
	args := m.Called(ctx, week)
	return args.Get(0).(domain.ArchiveWeek), args.Error(1)
}

// fakeSessions devolve sempre a mesma sessão e conta gravações.
type fakeSessions struct {
	sess  *domain.Session
	saves int
}

func (f *fakeSessions) Load(http.ResponseWriter, *http.Request) (*domain.Session, error) {
	return f.sess, nil
}

func (f *fakeSessions) Save(context.Context, *domain.Session) error {
	f.saves++
	return nil
}

type apiFixture struct {
	mux      *http.ServeMux
	service  *MockContestService
	archive  *MockArchive
	sessions *fakeSessions
}

// setupAPI cria a API com serviço mockado e uma sessão nomeada
func setupAPI(t *testing.T) apiFixture {
	service := new(MockContestService)
	arquivo := new(MockArchive)
	sessions := &fakeSessions{sess: &domain.Session{ID: "s1", UserName: "ana", Week: semana, ActiveTab: domain.TabWeek}}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))

	mux := http.NewServeMux()
	New(service, arquivo, sessions, logger, 1<<20).Register(mux)

	t.Cleanup(func() {
		service.AssertExpectations(t)
		arquivo.AssertExpectations(t)
	})

	return apiFixture{mux: mux, service: service, archive: arquivo, sessions: sessions}
}

func (f apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func multipartAudio(t *testing.T, trackName, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if trackName != "" {
		require.NoError(t, mw.WriteField("track_name", trackName))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="audio"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// === GET /healthz ===

func TestHandleHealthz_QuandoSolicitado_DeveRetornar200OK(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

// === /api/session ===

func TestSession_Get_DeveRetornarEstado(t *testing.T) {
	f := setupAPI(t)
	f.sessions.sess.HasUploadedThisWeek = true

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/session", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ana", body["user_name"])
	assert.Equal(t, "SUBMITTED", body["state"])
	assert.Zero(t, f.sessions.saves)
}

func TestSession_Get_QuandoSemanaVirou_DeveSalvar(t *testing.T) {
	f := setupAPI(t)
	f.sessions.sess.Week = "2026-02-02"

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/session", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.sessions.saves)
}

func TestSession_Post_DeveDefinirNome(t *testing.T) {
	f := setupAPI(t)
	f.service.On("SetUserName", mock.Anything, f.sessions.sess, "bia").Return(nil)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"user_name":"bia","active_tab":"archive"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "bia", body["user_name"])
	assert.Equal(t, "archive", body["active_tab"])
	assert.Equal(t, 1, f.sessions.saves)
}

func TestSession_Post_QuandoNomeVazio_DeveRetornar400(t *testing.T) {
	f := setupAPI(t)
	f.service.On("SetUserName", mock.Anything, mock.Anything, " ").Return(contest.ErrNameRequired)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"user_name":" "}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Set your display name first.", decode(t, w)["message"])
	assert.Zero(t, f.sessions.saves)
}

func TestSession_Post_QuandoAbaInvalida_DeveRetornar400(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"active_tab":"config"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_QuandoMetodoNaoSuportado_DeveRetornar405(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodDelete, "/api/session", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// === GET /api/clock e /api/week ===

func TestClock_DeveRetornarTempoFormatado(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/clock", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2026-02-09", body["week"])
	assert.Equal(t, "2d 3h 4m", body["time_left"])
}

func TestWeek_DeveRetornarRankingComBotoes(t *testing.T) {
	f := setupAPI(t)
	standings := contest.Rank([]domain.Track{
		{ID: "A", TrackName: "Neon Reverie", UserName: "ana", Week: semana, Votes: 14},
		{ID: "B", TrackName: "Highway Static", UserName: "bia", Week: semana, Votes: 9},
		{ID: "C", TrackName: "3AM Loops", UserName: "caio", Week: semana, Votes: 22},
	})
	f.service.On("Standings", mock.Anything, semana).Return(standings, nil)
	f.service.On("WeekStats", mock.Anything, semana).Return(domain.WeekStats{Week: semana, Submissions: 3, Votes: 45}, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/week", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Week      string `json:"week"`
		TimeLeft  string `json:"time_left"`
		Stats     domain.WeekStats
		Standings []struct {
			Track   domain.Track `json:"track"`
			Rank    int          `json:"rank"`
			Leading bool         `json:"leading"`
			Button  string       `json:"button"`
			CanVote bool         `json:"can_vote"`
		} `json:"standings"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

	require.Len(t, body.Standings, 3)
	assert.Equal(t, "3AM Loops", body.Standings[0].Track.TrackName)
	assert.True(t, body.Standings[0].Leading)
	assert.Equal(t, "VOTE", body.Standings[0].Button)
	assert.Equal(t, "YOURS", body.Standings[1].Button)
	assert.False(t, body.Standings[1].CanVote)
	assert.Equal(t, int64(45), body.Stats.Votes)
}

func TestWeek_QuandoListagemFalha_DeveDevolverListaVazia(t *testing.T) {
	f := setupAPI(t)
	f.service.On("Standings", mock.Anything, semana).Return([]domain.Standing(nil), assert.AnError)
	f.service.On("WeekStats", mock.Anything, semana).Return(domain.WeekStats{Week: semana}, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/week", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "erro")
	standings, ok := body["standings"].([]any)
	require.True(t, ok, "standings deveria ser uma lista, veio %v", body["standings"])
	assert.Empty(t, standings)
}

// === POST /api/tracks ===

func TestTracks_QuandoEnvioValido_DeveRetornar201(t *testing.T) {
	f := setupAPI(t)
	body, ct := multipartAudio(t, "Neon Reverie", "neon.mp3", "audio/mpeg", []byte("ID3"))
	f.service.On("Submit", mock.Anything, f.sessions.sess, mock.MatchedBy(func(sub domain.Submission) bool {
		return sub.TrackName == "Neon Reverie" &&
			sub.Audio != nil && sub.Audio.Name == "neon.mp3" &&
			sub.Audio.ContentType == "audio/mpeg" &&
			string(sub.Audio.Data) == "ID3" &&
			sub.Origin.IP == "203.0.113.9"
	})).Return(domain.Track{ID: "T1", TrackName: "Neon Reverie"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tracks", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := f.do(req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, contest.MsgSubmitted, decode(t, w)["message"])
	assert.Equal(t, 1, f.sessions.saves)
}

func TestTracks_QuandoSemArquivo_DeveRepassarNilAoServico(t *testing.T) {
	f := setupAPI(t)
	body, ct := multipartAudio(t, "Sem arquivo", "", "", nil)
	f.service.On("Submit", mock.Anything, mock.Anything, mock.MatchedBy(func(sub domain.Submission) bool {
		return sub.Audio == nil
	})).Return(domain.Track{}, contest.ErrAudioRequired)

	req := httptest.NewRequest(http.MethodPost, "/api/tracks", body)
	req.Header.Set("Content-Type", ct)
	w := f.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Select an audio file.", decode(t, w)["message"])
	assert.Zero(t, f.sessions.saves)
}

func TestTracks_ErrosMapeados(t *testing.T) {
	casos := []struct {
		err    error
		status int
	}{
		{contest.ErrAlreadySubmitted, http.StatusConflict},
		{contest.ErrNotAudio, http.StatusBadRequest},
		{contest.ErrAudioTooLarge, http.StatusRequestEntityTooLarge},
		{contest.ErrUploadFailed, http.StatusBadGateway},
		{contest.ErrSaveFailed, http.StatusInternalServerError},
		{antifraude.ErrRateLimitExceeded, http.StatusTooManyRequests},
	}

	for _, c := range casos {
		t.Run(c.err.Error(), func(t *testing.T) {
			f := setupAPI(t)
			body, ct := multipartAudio(t, "x", "x.mp3", "audio/mpeg", []byte("a"))
			f.service.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(domain.Track{}, c.err)

			req := httptest.NewRequest(http.MethodPost, "/api/tracks", body)
			req.Header.Set("Content-Type", ct)
			w := f.do(req)

			assert.Equal(t, c.status, w.Code)
		})
	}
}

func TestTracks_QuandoMetodoNaoSuportado_DeveRetornar405(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/tracks", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestValidate_QuandoNaoEhAudio_DeveRetornar400(t *testing.T) {
	f := setupAPI(t)
	body, ct := multipartAudio(t, "", "foto.png", "image/png", []byte{1})
	f.service.On("ValidateAudio", mock.Anything).Return(contest.ErrNotAudio)

	req := httptest.NewRequest(http.MethodPost, "/api/tracks/validate", body)
	req.Header.Set("Content-Type", ct)
	w := f.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please upload an audio file.", decode(t, w)["message"])
}

func TestValidate_QuandoAudio_DeveRetornar204(t *testing.T) {
	f := setupAPI(t)
	body, ct := multipartAudio(t, "", "a.ogg", "audio/ogg", []byte{1})
	f.service.On("ValidateAudio", mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tracks/validate", body)
	req.Header.Set("Content-Type", ct)
	w := f.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

// === POST /api/votes ===

func TestVotes_QuandoVotoValido_DeveRetornar200(t *testing.T) {
	f := setupAPI(t)
	f.service.On("Vote", mock.Anything, f.sessions.sess, domain.TrackID("T1"), domain.Origin{IP: "192.0.2.1", UserAgent: "teste"}).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/votes", strings.NewReader(`{"track_id":"T1"}`))
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("User-Agent", "teste")
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contest.MsgVoted, decode(t, w)["message"])
	assert.Equal(t, 1, f.sessions.saves)
}

func TestVotes_QuandoPayloadInvalido_DeveRetornar400(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/votes", strings.NewReader(`{invalido`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVotes_ErrosMapeados(t *testing.T) {
	casos := []struct {
		err    error
		status int
		saves  int
	}{
		{contest.ErrSelfVote, http.StatusForbidden, 0},
		{contest.ErrAlreadyVoted, http.StatusConflict, 0},
		{contest.ErrUnknownTrack, http.StatusNotFound, 0},
		{contest.ErrTrackNotInWeek, http.StatusConflict, 0},
		{contest.ErrVoteFailed, http.StatusInternalServerError, 0},
		{contest.ErrVoteNotCounted, http.StatusAccepted, 1},
	}

	for _, c := range casos {
		t.Run(c.err.Error(), func(t *testing.T) {
			f := setupAPI(t)
			f.service.On("Vote", mock.Anything, mock.Anything, domain.TrackID("T1"), mock.Anything).Return(c.err)

			w := f.do(httptest.NewRequest(http.MethodPost, "/api/votes", strings.NewReader(`{"track_id":"T1"}`)))

			assert.Equal(t, c.status, w.Code)
			assert.Equal(t, c.saves, f.sessions.saves)
		})
	}
}

// === /api/archives ===

func TestArchives_Lista(t *testing.T) {
	f := setupAPI(t)
	f.archive.On("Weeks", mock.Anything).Return([]domain.WeekKey{"2026-02-10", "2026-02-03"})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/archives", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"2026-02-10", "2026-02-03"}, decode(t, w)["weeks"])
}

func TestArchives_Semana(t *testing.T) {
	f := setupAPI(t)
	standings := contest.Rank([]domain.Track{{ID: "arc3", TrackName: "3AM Loops", Votes: 22}})
	f.archive.On("Week", mock.Anything, domain.WeekKey("2026-02-10")).Return(domain.ArchiveWeek{
		Week:      "2026-02-10",
		Winner:    contest.Winner(standings),
		Standings: standings,
	}, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/archives/2026-02-10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body domain.ArchiveWeek
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.Winner)
	assert.Equal(t, "3AM Loops", body.Winner.TrackName)
}

func TestArchives_SemanaDesconhecida_DeveRetornar404(t *testing.T) {
	f := setupAPI(t)
	f.archive.On("Week", mock.Anything, domain.WeekKey("1999-01-04")).Return(domain.ArchiveWeek{}, archive.ErrArchiveWeekNotFound)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/archives/1999-01-04", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchives_CaminhoInvalido_DeveRetornar404(t *testing.T) {
	f := setupAPI(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/archives/a/b", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
