package contest

import (
	"errors"

	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/antifraude"
)

type VoteButton string

const (
	ButtonVote  VoteButton = "VOTE"
	ButtonVoted VoteButton = "VOTED"
	ButtonYours VoteButton = "YOURS"
)

// ButtonFor decide o botão de uma linha do ranking. VOTED tem precedência sobre YOURS.
func ButtonFor(sess domain.Session, t domain.Track) (VoteButton, bool) {
	switch {
	case sess.VotedThisWeek:
		return ButtonVoted, false
	case sess.UserName != "" && t.UserName == sess.UserName:
		return ButtonYours, false
	default:
		return ButtonVote, true
	}
}

const (
	MsgSubmitted = "Track submitted! Good luck 🎵"
	MsgVoted     = "Vote cast! ♪"
	MsgNameSaved = "Welcome, %s!"
	// MsgVotePending avisa que o voto foi gravado mas o placar ainda não reflete.
	MsgVotePending = "Vote recorded, but the count did not update yet. It will catch up shortly."
)

// UserMessage traduz o erro do serviço para o texto mostrado no toast.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return "Set your display name first."
	case errors.Is(err, ErrTrackNameRequired):
		return "Enter a track name."
	case errors.Is(err, ErrAudioRequired):
		return "Select an audio file."
	case errors.Is(err, ErrNotAudio):
		return "Please upload an audio file."
	case errors.Is(err, ErrAudioTooLarge):
		return "That file is too large."
	case errors.Is(err, ErrAlreadySubmitted):
		return "You already submitted a track this week."
	case errors.Is(err, ErrAlreadyVoted):
		return "Already voted this week."
	case errors.Is(err, ErrSelfVote):
		return "Can't vote for your own track."
	case errors.Is(err, ErrUnknownTrack), errors.Is(err, ErrTrackNotInWeek):
		return "That track is not in this week's battle."
	case errors.Is(err, ErrUploadFailed):
		return "File upload failed. Try again."
	case errors.Is(err, antifraude.ErrRateLimitExceeded):
		return "Too many attempts. Wait a minute and try again."
	default:
		return "Something went wrong. Try again."
	}
}
