package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("registro nao encontrado")

type TrackRepository interface {
	Create(ctx context.Context, t Track) error
	FindByID(ctx context.Context, id TrackID) (Track, error)
	ListForWeek(ctx context.Context, week WeekKey) ([]Track, error)
	ExistsForUser(ctx context.Context, userName string, week WeekKey) (bool, error)
	IncrementVotes(ctx context.Context, id TrackID, current int64) error
	AddVote(ctx context.Context, id TrackID) error
	RecountVotes(ctx context.Context, id TrackID) (int64, error)
	ListWeeks(ctx context.Context, before WeekKey) ([]WeekKey, error)
}

type VoteRepository interface {
	Create(ctx context.Context, v Vote) error
	ExistsForUser(ctx context.Context, userName string, week WeekKey) (bool, error)
	CountForTrack(ctx context.Context, id TrackID) (int64, error)
}

type ObjectStorage interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	PublicURL(name string) string
}

type SessionStore interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
}

type Contador interface {
	Incrementar(ctx context.Context, chave string, delta int64) (int64, error)
	Obter(ctx context.Context, chave string) (int64, error)
	ObterTodos(ctx context.Context, chaves []string) (map[string]int64, error)
}

type Fila interface {
	PublicarRecontagem(ctx context.Context, r Recount) error
	ConsumirRecontagens(ctx context.Context, handler func(context.Context, Recount) error) error
}

type Antifraude interface {
	Validar(ctx context.Context, a Attempt) error
}

type Clock interface {
	Agora() time.Time
}

type ContestService interface {
	CurrentWeek() WeekKey
	TimeLeft() time.Duration
	SyncSession(ctx context.Context, s *Session) bool
	SetUserName(ctx context.Context, s *Session, name string) error
	ValidateAudio(f AudioFile) error
	Submit(ctx context.Context, s *Session, sub Submission) (Track, error)
	Vote(ctx context.Context, s *Session, id TrackID, origin Origin) error
	Standings(ctx context.Context, week WeekKey) ([]Standing, error)
	WeekStats(ctx context.Context, week WeekKey) (WeekStats, error)
}

type ArchiveBrowser interface {
	Weeks(ctx context.Context) []WeekKey
	Week(ctx context.Context, week WeekKey) (ArchiveWeek, error)
}
