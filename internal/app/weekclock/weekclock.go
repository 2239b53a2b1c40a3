// Pacote weekclock calcula a semana do concurso (segunda a domingo) e o tempo que resta nela.
package weekclock

import (
	"fmt"
	"time"

	"github.com/marcelojr/track-battle/internal/domain"
)

const keyLayout = "2006-01-02"

// CurrentWeekKey devolve a segunda-feira igual ou anterior a now, no fuso de now.
func CurrentWeekKey(now time.Time) domain.WeekKey {
	offset := int(now.Weekday()) - int(time.Monday)
	if offset < 0 {
		// domingo
		offset = 6
	}
	monday := now.AddDate(0, 0, -offset)
	return domain.WeekKey(monday.Format(keyLayout))
}

// WeekStart devolve a meia-noite da segunda-feira da chave em loc.
func WeekStart(key domain.WeekKey, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(keyLayout, string(key), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("weekclock: chave de semana invalida %q: %w", key, err)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("weekclock: %q nao e uma segunda-feira", key)
	}
	return t, nil
}

// TimeRemaining é o tempo entre now e a meia-noite da segunda seguinte. Pode ser negativo.
func TimeRemaining(key domain.WeekKey, now time.Time) time.Duration {
	start, err := WeekStart(key, now.Location())
	if err != nil {
		return 0
	}
	return start.AddDate(0, 0, 7).Sub(now)
}

// Remaining combina CurrentWeekKey e TimeRemaining para o instante now.
func Remaining(now time.Time) time.Duration {
	return TimeRemaining(CurrentWeekKey(now), now)
}

// FormatDuration escreve "Xd Yh Zm", truncando os segundos.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0d 0h 0m"
	}
	days := int64(d / (24 * time.Hour))
	hours := int64(d%(24*time.Hour)) / int64(time.Hour)
	minutes := int64(d%time.Hour) / int64(time.Minute)
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// Previous devolve a chave da semana anterior.
func Previous(key domain.WeekKey) (domain.WeekKey, error) {
	start, err := WeekStart(key, time.UTC)
	if err != nil {
		return "", err
	}
	return domain.WeekKey(start.AddDate(0, 0, -7).Format(keyLayout)), nil
}
