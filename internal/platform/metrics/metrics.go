package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_battle_submissions_total",
		Help: "Total de envios de faixa por resultado",
	}, []string{"status"})

	votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_battle_votes_total",
		Help: "Total de votos por resultado",
	}, []string{"status"})

	eligibilityErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_battle_eligibility_errors_total",
		Help: "Falhas nas consultas de elegibilidade tratadas como liberadas",
	}, []string{"check"})

	listingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_battle_listing_errors_total",
		Help: "Falhas ao listar as faixas da semana, exibidas como lista vazia",
	}, []string{"surface"})

	recountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_battle_recounts_total",
		Help: "Recontagens de votos processadas pelo worker",
	}, []string{"status"})

	recountDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "track_battle_recount_duration_seconds",
		Help:    "Tempo para recontar os votos de uma faixa",
		Buckets: prometheus.DefBuckets,
	})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "track_battle_upload_bytes",
		Help:    "Tamanho dos arquivos de audio enviados",
		Buckets: prometheus.ExponentialBuckets(64<<10, 2, 10),
	})
)

func ObserveSubmission(status string) {
	submissionsTotal.WithLabelValues(status).Inc()
}

func ObserveVote(status string) {
	votesTotal.WithLabelValues(status).Inc()
}

func IncEligibilityError(check string) {
	eligibilityErrorsTotal.WithLabelValues(check).Inc()
}

func IncListingError(surface string) {
	listingErrorsTotal.WithLabelValues(surface).Inc()
}

func ObserveRecount(status string, seconds float64) {
	recountsTotal.WithLabelValues(status).Inc()
	recountDuration.Observe(seconds)
}

func ObserveUploadBytes(n int) {
	uploadBytes.Observe(float64(n))
}
