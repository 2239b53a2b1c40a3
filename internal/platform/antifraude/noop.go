package antifraude

import (
	"context"

	"github.com/marcelojr/track-battle/internal/domain"
)

// Noop representa uma estratégia de antifraude desabilitada.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Validar(context.Context, domain.Attempt) error {
	return nil
}
