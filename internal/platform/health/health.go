// Pacote health expõe o readiness usado pelo orquestrador.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probe é uma dependência extra verificada no readiness (ex.: armazenamento de áudio).
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Checker struct {
	probes  []Probe
	timeout time.Duration
}

// NewChecker verifica banco e Redis nessa ordem, seguidos das probes extras.
// Dependências nulas são ignoradas.
func NewChecker(db *sql.DB, redisClient *redis.Client, extras ...Probe) *Checker {
	var probes []Probe
	if db != nil {
		probes = append(probes, Probe{Name: "database", Check: db.PingContext})
	}
	if redisClient != nil {
		probes = append(probes, Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	for _, p := range extras {
		if p.Check != nil {
			probes = append(probes, p)
		}
	}
	return &Checker{probes: probes, timeout: 2 * time.Second}
}

type readyResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()

		for _, p := range c.probes {
			if err := p.Check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Failed: p.Name})
				return
			}
		}

		writeJSON(w, http.StatusOK, readyResponse{Status: "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body readyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
