package validator

import (
	"github.com/montanaflynn/stats"

	"github.com/proxymesh/harvester/internal/store"
)

const neutralStabilityPrior = 70

// stabilityTest derives a stability subscore from bounded history, per
// spec.md §4.4.5. history should already be pruned to the last K
// results within the configured window (store.History does this).
func stabilityTest(history []store.CheckResult, historicalScores []float64) SubtestOutcome {
	if len(history) == 0 {
		return SubtestOutcome{
			OK:       true,
			Subscore: neutralStabilityPrior,
			Details:  map[string]interface{}{"sample_size": 0, "note": "no history, neutral prior"},
		}
	}

	successCount := 0
	var successfulRTTs []float64
	for _, h := range history {
		if h.IsSuccessful {
			successCount++
			successfulRTTs = append(successfulRTTs, float64(h.ResponseTimeMs))
		}
	}
	successRate := float64(successCount) / float64(len(history))

	rttStability := 100.0
	if len(successfulRTTs) >= 2 {
		data := stats.Float64Data(successfulRTTs)
		mean, _ := data.Mean()
		stdev, _ := data.StandardDeviation()
		if mean > 0 {
			cv := stdev / mean
			if cv > 1 {
				cv = 1
			}
			rttStability = 100 * (1 - cv)
		}
	}

	consistency := 100.0
	if len(historicalScores) >= 2 {
		data := stats.Float64Data(historicalScores)
		stdev, _ := data.StandardDeviation()
		norm := stdev / 100
		if norm > 1 {
			norm = 1
		}
		consistency = 100 * (1 - norm)
	}

	subscore := 0.4*successRate*100 + 0.3*rttStability + 0.3*consistency

	return SubtestOutcome{
		OK:       true,
		Subscore: subscore,
		Details: map[string]interface{}{
			"sample_size":   len(history),
			"success_rate":  successRate,
			"rtt_stability": rttStability,
			"consistency":   consistency,
		},
	}
}
