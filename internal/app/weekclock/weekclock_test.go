package weekclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/track-battle/internal/domain"
)

func TestCurrentWeekKey_DeveRetornarSegundaFeira(t *testing.T) {
	casos := []struct {
		nome     string
		agora    time.Time
		esperado domain.WeekKey
	}{
		{"segunda", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), "2026-02-09"},
		{"quarta", time.Date(2026, 2, 11, 15, 30, 0, 0, time.UTC), "2026-02-09"},
		{"sabado", time.Date(2026, 2, 14, 23, 59, 0, 0, time.UTC), "2026-02-09"},
		{"domingo volta para segunda anterior", time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC), "2026-02-09"},
		{"virada de mes", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), "2026-02-23"},
		{"virada de ano", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), "2025-12-29"},
	}

	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			assert.Equal(t, c.esperado, CurrentWeekKey(c.agora))
		})
	}
}

func TestCurrentWeekKey_UsaFusoDoInstante(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// segunda 01:00 UTC ainda é domingo em BRT
	agora := time.Date(2026, 2, 16, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, domain.WeekKey("2026-02-16"), CurrentWeekKey(agora))
	assert.Equal(t, domain.WeekKey("2026-02-09"), CurrentWeekKey(agora.In(loc)))
}

func TestWeekStart(t *testing.T) {
	start, err := WeekStart("2026-02-09", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), start)

	_, err = WeekStart("2026-02-10", time.UTC)
	assert.Error(t, err)

	_, err = WeekStart("ontem", time.UTC)
	assert.Error(t, err)
}

func TestTimeRemaining(t *testing.T) {
	agora := time.Date(2026, 2, 14, 22, 30, 0, 0, time.UTC)

	restante := TimeRemaining("2026-02-09", agora)

	assert.Equal(t, 25*time.Hour+30*time.Minute, restante)
	assert.Equal(t, "1d 1h 30m", FormatDuration(restante))
}

func TestTimeRemaining_DiminuiComOTempo(t *testing.T) {
	inicio := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	anterior := Remaining(inicio)
	assert.Equal(t, 7*24*time.Hour, anterior)

	for h := 1; h < 7*24; h += 5 {
		atual := Remaining(inicio.Add(time.Duration(h) * time.Hour))
		assert.Less(t, atual, anterior)
		assert.Greater(t, atual, time.Duration(0))
		anterior = atual
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0d 0h 0m", FormatDuration(0))
	assert.Equal(t, "0d 0h 0m", FormatDuration(-5*time.Minute))
	assert.Equal(t, "0d 0h 0m", FormatDuration(59*time.Second))
	assert.Equal(t, "6d 23h 59m", FormatDuration(7*24*time.Hour-time.Second))
	assert.Equal(t, "2d 3h 4m", FormatDuration(2*24*time.Hour+3*time.Hour+4*time.Minute+30*time.Second))
}

func TestPrevious(t *testing.T) {
	anterior, err := Previous("2026-02-09")
	require.NoError(t, err)
	assert.Equal(t, domain.WeekKey("2026-02-02"), anterior)

	_, err = Previous("x")
	assert.Error(t, err)
}
