package contest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/antifraude"
)

func TestButtonFor(t *testing.T) {
	propria := domain.Track{ID: "T1", UserName: "ana"}
	alheia := domain.Track{ID: "T2", UserName: "bia"}

	casos := []struct {
		nome      string
		sess      domain.Session
		track     domain.Track
		esperado  VoteButton
		habilitar bool
	}{
		{"pode votar", domain.Session{UserName: "ana"}, alheia, ButtonVote, true},
		{"faixa propria", domain.Session{UserName: "ana"}, propria, ButtonYours, false},
		{"ja votou", domain.Session{UserName: "ana", VotedThisWeek: true}, alheia, ButtonVoted, false},
		{"ja votou e faixa propria", domain.Session{UserName: "ana", VotedThisWeek: true}, propria, ButtonVoted, false},
		{"sem nome", domain.Session{}, domain.Track{UserName: ""}, ButtonVote, true},
	}

	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			botao, habilitado := ButtonFor(c.sess, c.track)
			assert.Equal(t, c.esperado, botao)
			assert.Equal(t, c.habilitar, habilitado)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Set your display name first.", UserMessage(ErrNameRequired))
	assert.Equal(t, "Please upload an audio file.", UserMessage(ErrNotAudio))
	assert.Equal(t, "File upload failed. Try again.", UserMessage(fmt.Errorf("%w: timeout", ErrUploadFailed)))
	assert.Equal(t, "Something went wrong. Try again.", UserMessage(ErrSaveFailed))
	assert.Equal(t, "Something went wrong. Try again.", UserMessage(ErrVoteFailed))
	assert.Contains(t, UserMessage(antifraude.ErrRateLimitExceeded), "Too many")
}
