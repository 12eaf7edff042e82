package council

import (
	"regexp"
	"sort"
	"strings"

	"github.com/elazargur/llm-council/internal/domain"
)

var (
	rankedLinePattern = regexp.MustCompile(`\d+\.\s*Response [A-Z]`)
	labelPattern      = regexp.MustCompile(`Response [A-Z]`)
)

const finalRankingMarker = "FINAL RANKING:"

// parseRanking extracts the ordered response labels from a ranking answer.
// The section after the FINAL RANKING marker is preferred; when a model does
// not follow the format, any labels mentioned in the text are used in order.
func parseRanking(text string) []string {
	if _, section, found := strings.Cut(text, finalRankingMarker); found {
		if matches := rankedLinePattern.FindAllString(section, -1); len(matches) > 0 {
			labels := make([]string, 0, len(matches))
			for _, m := range matches {
				labels = append(labels, labelPattern.FindString(m))
			}
			return labels
		}
	}
	return labelPattern.FindAllString(text, -1)
}

// aggregateRankings averages each model's position across all rankings and
// returns the models ordered best (lowest average) first.
func aggregateRankings(rankings map[string]domain.Ranking, labelToModel map[string]string) []domain.AggregateRank {
	positions := make(map[string][]int)
	for _, r := range rankings {
		for i, label := range r.Parsed {
			model, ok := labelToModel[label]
			if !ok {
				continue
			}
			positions[model] = append(positions[model], i+1)
		}
	}

	agg := make([]domain.AggregateRank, 0, len(positions))
	for model, ps := range positions {
		sum := 0
		for _, p := range ps {
			sum += p
		}
		avg := float64(sum) / float64(len(ps))
		// Two decimal places, matching the rank display precision.
		agg = append(agg, domain.AggregateRank{
			Model:       model,
			AverageRank: float64(int(avg*100+0.5)) / 100,
		})
	}

	sort.Slice(agg, func(i, j int) bool {
		if agg[i].AverageRank != agg[j].AverageRank {
			return agg[i].AverageRank < agg[j].AverageRank
		}
		return agg[i].Model < agg[j].Model
	})
	return agg
}
