package domain

import (
	"time"
)

type (
	TrackID string
	VoteID  string
	// WeekKey é a data ISO (2006-01-02) da segunda-feira que abre a semana do concurso.
	WeekKey string
)

func (w WeekKey) String() string { return string(w) }

type Track struct {
	ID         TrackID   `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	TrackName  string    `gorm:"column:track_name;type:text;not null" json:"track_name"`
	UserName   string    `gorm:"column:user_name;type:text;not null;index:idx_tracks_user_week,priority:1" json:"user_name"`
	Week       WeekKey   `gorm:"column:week;type:char(10);not null;index:idx_tracks_week;index:idx_tracks_user_week,priority:2" json:"week"`
	Votes      int64     `gorm:"column:votes;not null;default:0" json:"votes"`
	AudioURL   string    `gorm:"column:audio_url;type:text" json:"audio_url,omitempty"`
	DurationMS int64     `gorm:"column:duration_ms;not null;default:0" json:"duration_ms,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

type Vote struct {
	ID        VoteID    `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	TrackID   TrackID   `gorm:"column:track_id;type:char(26);not null;index:idx_votes_track" json:"track_id"`
	UserName  string    `gorm:"column:user_name;type:text;not null;index:idx_votes_user_week,priority:1" json:"user_name"`
	Week      WeekKey   `gorm:"column:week;type:char(10);not null;index:idx_votes_user_week,priority:2" json:"week"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Track) TableName() string { return "tracks" }

func (Vote) TableName() string { return "votes" }

// Standing é uma faixa já posicionada no ranking da semana.
type Standing struct {
	Track   Track `json:"track"`
	Rank    int   `json:"rank"`
	Leading bool  `json:"leading"`
}

type WeekStats struct {
	Week        WeekKey `json:"week"`
	Submissions int64   `json:"submissions"`
	Votes       int64   `json:"votes"`
}

type ArchiveWeek struct {
	Week      WeekKey    `json:"week"`
	Winner    *Track     `json:"winner,omitempty"`
	Standings []Standing `json:"standings"`
}

// AudioFile é o arquivo escolhido pelo usuário; vive apenas na requisição que o carrega.
type AudioFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type Origin struct {
	IP        string
	UserAgent string
}

type Submission struct {
	TrackName string
	Audio     *AudioFile
	Origin    Origin
}

type Action string

const (
	ActionSubmit Action = "submit"
	ActionVote   Action = "vote"
)

// Attempt descreve uma ação de escrita para o antifraude.
type Attempt struct {
	Action   Action
	Week     WeekKey
	UserName string
	Origin   Origin
}

// Recount pede que o contador denormalizado de uma faixa seja recalculado a partir dos votos.
type Recount struct {
	TrackID     TrackID   `json:"track_id"`
	Week        WeekKey   `json:"week"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type Tab string

const (
	TabWeek    Tab = "week"
	TabArchive Tab = "archive"
)

type SubmissionState int

const (
	StateNoName SubmissionState = iota
	StateNamedNotSubmitted
	StateSubmitted
)

func (s SubmissionState) String() string {
	switch s {
	case StateNoName:
		return "NO_NAME"
	case StateNamedNotSubmitted:
		return "NAMED_NOT_SUBMITTED"
	case StateSubmitted:
		return "SUBMITTED"
	default:
		return "UNKNOWN"
	}
}

// Session guarda o estado de um navegador: identidade, flags da semana e navegação.
type Session struct {
	ID                  string    `json:"id"`
	UserName            string    `json:"user_name"`
	Week                WeekKey   `json:"week"`
	TrackNameDraft      string    `json:"track_name_draft,omitempty"`
	HasUploadedThisWeek bool      `json:"has_uploaded_this_week"`
	VotedThisWeek       bool      `json:"voted_this_week"`
	ActiveTab           Tab       `json:"active_tab"`
	SelectedArchiveWeek WeekKey   `json:"selected_archive_week,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (s Session) State() SubmissionState {
	switch {
	case s.UserName == "":
		return StateNoName
	case s.HasUploadedThisWeek:
		return StateSubmitted
	default:
		return StateNamedNotSubmitted
	}
}

// ResetWeek move a sessão para outra semana e descarta as flags da anterior.
func (s *Session) ResetWeek(week WeekKey) {
	s.Week = week
	s.HasUploadedThisWeek = false
	s.VotedThisWeek = false
	s.TrackNameDraft = ""
}
