package analysis

import (
	"sort"

	"volume-screener/src/models"
)

// RankResults sorts by ratio descending, keeping discovery order on ties, and
// truncates to limit (limit <= 0 keeps everything).
func RankResults(results []models.MScreeningResult, limit int) []models.MScreeningResult {
	ranked := make([]models.MScreeningResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Ratio > ranked[j].Ratio
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
