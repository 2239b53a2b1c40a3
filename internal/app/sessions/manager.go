// Pacote sessions liga o cookie do navegador à sessão guardada no servidor.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marcelojr/track-battle/internal/domain"
)

type Manager struct {
	store  domain.SessionStore
	cookie string
	secure bool
	ttl    time.Duration
	clock  domain.Clock
}

func NewManager(store domain.SessionStore, cookieName string, secure bool, ttl time.Duration, clock domain.Clock) *Manager {
	if cookieName == "" {
		cookieName = "tb_session"
	}
	return &Manager{store: store, cookie: cookieName, secure: secure, ttl: ttl, clock: clock}
}

// Load devolve a sessão do cookie, criando uma nova quando o cookie falta, é inválido ou expirou.
// O cookie é reenviado em toda resposta para renovar a validade.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	if c, err := r.Cookie(m.cookie); err == nil {
		if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
			sess, loadErr := m.store.Load(r.Context(), c.Value)
			switch {
			case loadErr == nil:
				m.setCookie(w, sess.ID)
				return &sess, nil
			case !errors.Is(loadErr, domain.ErrNotFound):
				return nil, fmt.Errorf("sessions: carregar: %w", loadErr)
			}
		}
	}

	sess := &domain.Session{
		ID:        uuid.NewString(),
		ActiveTab: domain.TabWeek,
		UpdatedAt: m.clock.Agora(),
	}
	m.setCookie(w, sess.ID)
	return sess, nil
}

func (m *Manager) Save(ctx context.Context, sess *domain.Session) error {
	if err := m.store.Save(ctx, *sess); err != nil {
		return fmt.Errorf("sessions: salvar: %w", err)
	}
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
