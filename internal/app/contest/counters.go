package contest

import (
	"fmt"

	"github.com/marcelojr/track-battle/internal/domain"
)

func CounterKeySubmissions(week domain.WeekKey) string {
	return fmt.Sprintf("semana:%s:faixas", week)
}

func CounterKeyVotes(week domain.WeekKey) string {
	return fmt.Sprintf("semana:%s:votos", week)
}
